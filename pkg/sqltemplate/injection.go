package sqltemplate

import (
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/sqless-ai/sqless-engine/pkg/models"
)

// InjectionCheckResult describes a string literal that looks like an SQL
// injection probe.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamName   string // Placeholder name holding the literal (param_N)
	Value       string // The unquoted literal value that was checked
}

// CheckLiteralForInjection runs libinjection over a captured string literal.
//
// Query logs contain attack traffic alongside legitimate queries; a probe
// that happened to execute successfully must not be canonized into a trusted
// template. Only quoted string literals are checked - numeric and date
// literals cannot carry injection payloads.
//
// Returns nil if the literal is clean or not a string literal.
func CheckLiteralForInjection(paramName, rawLiteral string) *InjectionCheckResult {
	if !strings.HasPrefix(rawLiteral, "'") {
		return nil
	}

	value := unquoteStringLiteral(rawLiteral)
	isSQLi, fp := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fp),
		ParamName:   paramName,
		Value:       value,
	}
}

// CheckTemplateLiterals screens every captured literal of a template.
// Returns one result per suspicious literal, or an empty slice when all
// literals are clean.
func CheckTemplateLiterals(tpl models.SQLTemplate) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for name, value := range tpl.ParamValues {
		if result := CheckLiteralForInjection(name, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}

// unquoteStringLiteral strips the surrounding quotes and collapses the SQL
// standard '' escape.
func unquoteStringLiteral(raw string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(raw, "'"), "'")
	return strings.ReplaceAll(trimmed, "''", "'")
}
