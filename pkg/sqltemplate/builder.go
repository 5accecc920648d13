package sqltemplate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sqless-ai/sqless-engine/pkg/apperrors"
	"github.com/sqless-ai/sqless-engine/pkg/models"
)

// literalRegex matches, in left-to-right order, the literal tokens that get
// parameterized: quoted string literals (with '' escapes), bare date
// literals, and bare numeric literals. Replacements are not rescanned, so a
// generated {param_N} placeholder can never itself be parameterized.
var literalRegex = regexp.MustCompile(`'(?:[^']|'')*'|\b\d{4}-\d{2}-\d{2}\b|\b\d+(?:\.\d+)?\b`)

// tableRegex matches table references following FROM/JOIN clauses,
// case-insensitively. Subqueries do not match: the clause must be followed by
// an identifier, not a parenthesis.
var tableRegex = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-zA-Z_][\w.]*)`)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Builder turns PII-masked SQL text into a parameterized SQLTemplate.
//
// The builder is stateless and safe for concurrent use. Its output is a pure
// function of the input text: the fingerprint is content-addressed over the
// normalized template plus the sorted table set, and nothing else, so the
// same masked text always yields the same fingerprint across runs and across
// process restarts.
type Builder struct{}

// NewBuilder returns a template builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build parameterizes literals, extracts referenced tables, normalizes the
// text, and fingerprints the result.
//
// Each distinct syntactic literal occurrence gets its own positional
// placeholder in order of first appearance; repeated identical values are NOT
// deduplicated, keeping the template a function of structure rather than of
// which values happened to repeat:
//
//	Build("SELECT * FROM orders WHERE dt = '2024-01-01' AND n > 5")
//	// TemplateSQL == "select * from orders where dt = {param_1} and n > {param_2}"
//	// Tables == []string{"orders"}, ParamCount == 2
//
// SQL with no recognizable table reference still produces a template with an
// empty table set; rejecting it is a scoring-stage concern. Text that cannot
// be tokenized (unbalanced quoting, unterminated comments) returns an error
// wrapping apperrors.ErrMalformedInput and must be skipped by the caller.
func (b *Builder) Build(sqlText string) (models.SQLTemplate, error) {
	base, err := stripComments(sqlText)
	if err != nil {
		return models.SQLTemplate{}, err
	}
	if base == "" {
		return models.SQLTemplate{}, fmt.Errorf("no statement after comment stripping: %w", apperrors.ErrMalformedInput)
	}

	paramValues := make(map[string]string)
	counter := 0
	templated := literalRegex.ReplaceAllStringFunc(base, func(match string) string {
		counter++
		name := fmt.Sprintf("param_%d", counter)
		paramValues[name] = match
		return "{" + name + "}"
	})

	tables := extractTables(base)
	normalized := normalize(templated)

	return models.SQLTemplate{
		Fingerprint: fingerprint(normalized, tables),
		TemplateSQL: normalized,
		Tables:      tables,
		ParamCount:  counter,
		ParamValues: paramValues,
	}, nil
}

// extractTables collects referenced table names after FROM/JOIN clauses,
// lowercased, deduplicated, and sorted. Aliased repeat references to the same
// table collapse to one entry.
func extractTables(sqlText string) []string {
	matches := tableRegex.FindAllStringSubmatch(sqlText, -1)
	seen := make(map[string]bool)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.ToLower(m[1])
		if !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
	}
	sort.Strings(tables)
	return tables
}

// normalize collapses all whitespace runs to single spaces and lowercases the
// text, so formatting differences never split fingerprints.
func normalize(sqlText string) string {
	return strings.ToLower(whitespaceRegex.ReplaceAllString(strings.TrimSpace(sqlText), " "))
}

// fingerprint hashes the normalized template together with the sorted table
// set. The NUL separator keeps template text from bleeding into the table
// list under concatenation.
func fingerprint(normalizedSQL string, tables []string) string {
	h := sha256.New()
	h.Write([]byte(normalizedSQL))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(tables, ",")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
