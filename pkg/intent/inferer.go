// Package intent derives one-sentence business-intent labels from SQL
// template structure.
package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/sqless-ai/sqless-engine/pkg/models"
)

var (
	// measureRegex matches aggregate calls over a column or * in normalized
	// (lowercased) template text.
	measureRegex = regexp.MustCompile(`\b(sum|count|avg|max|min)\s*\(\s*(distinct\s+)?([a-z_][\w.]*|\*)\s*\)`)

	// groupByRegex captures the grouping column list up to the next clause.
	groupByRegex = regexp.MustCompile(`\bgroup\s+by\s+(.+?)(?:\s+order\s+by\b|\s+having\b|\s+limit\b|$)`)

	// timeWindowRegex detects a comparison between a time-named column and a
	// parameter placeholder. Only the column name is used; placeholder values
	// never influence the label, which keeps it a pure function of the
	// fingerprint.
	timeWindowRegex = regexp.MustCompile(`\b([a-z_]*(?:date|time|day|dt|week|month)[\w]*)\s*(?:>=|<=|<>|!=|=|>|<|between)\s*\{param_\d+\}`)

	// conditionRegex collects columns compared against placeholders in WHERE
	// clauses, for the non-aggregate fallback label.
	conditionRegex = regexp.MustCompile(`\b([a-z_][\w.]*)\s+(?:not\s+)?(?:like|in|between)\s*\{param_\d+\}|\b([a-z_][\w.]*)\s*(?:>=|<=|<>|!=|=|>|<)\s*\{param_\d+\}`)
)

// Inferer composes deterministic natural-language labels from template
// structure. It performs no external lookups: only what is lexically present
// in the template is used, so identical fingerprints always yield identical
// labels.
type Inferer struct{}

// NewInferer returns an intent inferer.
func NewInferer() *Inferer {
	return &Inferer{}
}

// Infer returns a one-sentence label for the template.
//
// Aggregate templates read like
//
//	"Aggregates sum of gmv over orders grouped by dt, filtered by a time window on dt."
//
// and non-aggregate templates fall back to
//
//	"Retrieves order rows from orders filtered by status."
func (inf *Inferer) Infer(tpl models.SQLTemplate) string {
	measures := detectMeasures(tpl.TemplateSQL, tpl.Tables)
	if len(measures) == 0 {
		return retrievalLabel(tpl)
	}

	var b strings.Builder
	b.WriteString("Aggregates ")
	b.WriteString(strings.Join(measures, " and "))
	b.WriteString(" over ")
	b.WriteString(tableDescription(tpl.Tables))

	if dims := detectGrouping(tpl.TemplateSQL); len(dims) > 0 {
		b.WriteString(" grouped by ")
		b.WriteString(strings.Join(dims, ", "))
	}
	if col, ok := detectTimeWindow(tpl.TemplateSQL); ok {
		b.WriteString(", filtered by a time window on ")
		b.WriteString(col)
	}
	b.WriteString(".")
	return b.String()
}

// detectMeasures lists aggregate expressions in order of appearance.
// count(*) is described using the entity noun of the primary table.
func detectMeasures(templateSQL string, tables []string) []string {
	matches := measureRegex.FindAllStringSubmatch(templateSQL, -1)
	measures := make([]string, 0, len(matches))
	for _, m := range matches {
		fn, distinct, col := m[1], m[2] != "", m[3]
		switch {
		case fn == "count" && col == "*":
			measures = append(measures, "count of "+rowNoun(tables))
		case fn == "count" && distinct:
			measures = append(measures, "count of distinct "+col)
		case fn == "count":
			measures = append(measures, "count of "+col)
		case fn == "avg":
			measures = append(measures, "average of "+col)
		default:
			measures = append(measures, fn+" of "+col)
		}
	}
	return measures
}

func detectGrouping(templateSQL string) []string {
	m := groupByRegex.FindStringSubmatch(templateSQL)
	if m == nil {
		return nil
	}
	parts := strings.Split(m[1], ",")
	dims := make([]string, 0, len(parts))
	for _, p := range parts {
		dim := strings.TrimSpace(p)
		if dim == "" || strings.HasPrefix(dim, "{param_") {
			continue
		}
		dims = append(dims, dim)
	}
	return dims
}

func detectTimeWindow(templateSQL string) (string, bool) {
	m := timeWindowRegex.FindStringSubmatch(templateSQL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// retrievalLabel is the generic non-aggregate fallback.
func retrievalLabel(tpl models.SQLTemplate) string {
	if len(tpl.Tables) == 0 {
		return "Retrieves rows."
	}
	label := fmt.Sprintf("Retrieves %s rows from %s", inflection.Singular(primaryTable(tpl.Tables)), tableDescription(tpl.Tables))
	if cols := detectConditions(tpl.TemplateSQL); len(cols) > 0 {
		label += " filtered by " + strings.Join(cols, ", ")
	}
	return label + "."
}

// detectConditions lists distinct columns compared against placeholders, in
// order of first appearance.
func detectConditions(templateSQL string) []string {
	whereIdx := strings.Index(templateSQL, "where ")
	if whereIdx < 0 {
		return nil
	}
	matches := conditionRegex.FindAllStringSubmatch(templateSQL[whereIdx:], -1)
	seen := make(map[string]bool)
	var cols []string
	for _, m := range matches {
		col := m[1]
		if col == "" {
			col = m[2]
		}
		if !seen[col] {
			seen[col] = true
			cols = append(cols, col)
		}
	}
	return cols
}

// tableDescription joins the (already sorted) table set, or names the absence.
func tableDescription(tables []string) string {
	if len(tables) == 0 {
		return "an unnamed source"
	}
	return strings.Join(tables, ", ")
}

// rowNoun is the plural entity noun for the primary table, used when
// describing count(*) measures.
func rowNoun(tables []string) string {
	if len(tables) == 0 {
		return "rows"
	}
	return inflection.Plural(inflection.Singular(primaryTable(tables)))
}

func primaryTable(tables []string) string {
	return tables[0]
}
