// Package sqltemplate builds masked, parameterized SQL templates with stable
// fingerprints from filtered query-log text.
package sqltemplate

import (
	"fmt"
	"strings"

	"github.com/sqless-ai/sqless-engine/pkg/apperrors"
)

// stripComments removes -- line comments and /* */ block comments while
// tracking quote state, so comment markers inside string literals or quoted
// identifiers survive. It is also the tokenization gate: unterminated string
// literals, quoted identifiers, or block comments make the whole entry
// malformed - the builder must never fingerprint partially-scanned text.
func stripComments(sqlText string) (string, error) {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)

	var out strings.Builder
	out.Grow(len(sqlText))

	state := stateNormal
	runes := []rune(sqlText)

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case ch == '-' && next == '-':
				state = stateLineComment
				i++
			case ch == '/' && next == '*':
				state = stateBlockComment
				i++
			case ch == '\'':
				state = stateSingleQuote
				out.WriteRune(ch)
			case ch == '"':
				state = stateDoubleQuote
				out.WriteRune(ch)
			default:
				out.WriteRune(ch)
			}
		case stateSingleQuote:
			out.WriteRune(ch)
			if ch == '\'' {
				// SQL standard escaped quote ('') stays inside the string
				if next == '\'' {
					out.WriteRune(next)
					i++
				} else {
					state = stateNormal
				}
			}
		case stateDoubleQuote:
			out.WriteRune(ch)
			if ch == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if ch == '\n' {
				state = stateNormal
				out.WriteRune(ch)
			}
		case stateBlockComment:
			if ch == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	switch state {
	case stateSingleQuote:
		return "", fmt.Errorf("unterminated string literal: %w", apperrors.ErrMalformedInput)
	case stateDoubleQuote:
		return "", fmt.Errorf("unterminated quoted identifier: %w", apperrors.ErrMalformedInput)
	case stateBlockComment:
		return "", fmt.Errorf("unterminated block comment: %w", apperrors.ErrMalformedInput)
	}

	return strings.TrimSpace(out.String()), nil
}
