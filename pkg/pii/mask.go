// Package pii provides pattern-based PII masking for SQL text.
//
// Masking runs as an ordered sequence of rewrite passes. Each pass replaces
// every match of one pattern with the mask token. The pass order is part of
// the contract: email runs before phone so that a phone-shaped local part of
// an address cannot be half-masked into a different shape. Fingerprints are
// computed over masked text, so adding a pass changes fingerprints only for
// inputs the new pattern actually matches.
package pii

import "regexp"

// MaskToken is the literal replacement for every detected PII occurrence.
const MaskToken = "<MASKED>"

// Pass is a single named rewrite pass.
type Pass struct {
	Name    string
	Pattern *regexp.Regexp
}

// Apply rewrites every match of the pass pattern with the mask token.
func (p Pass) Apply(text string) string {
	return p.Pattern.ReplaceAllString(text, MaskToken)
}

var defaultPasses = []Pass{
	{Name: "email", Pattern: regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
	{Name: "phone", Pattern: regexp.MustCompile(`\b1[3-9]\d{9}\b`)},
	{Name: "national_id", Pattern: regexp.MustCompile(`\b\d{15,18}[Xx]?\b`)},
}

// Masker applies an ordered list of masking passes.
type Masker struct {
	passes []Pass
}

// NewMasker returns a masker with the default passes: email addresses,
// mainland phone numbers, and national ID numbers.
func NewMasker() *Masker {
	return &Masker{passes: defaultPasses}
}

// NewMaskerWithPasses returns a masker with a custom ordered pass list.
func NewMaskerWithPasses(passes []Pass) *Masker {
	return &Masker{passes: passes}
}

// Mask runs all passes in order over the text. Text that matches no pattern
// is returned unchanged; malformed near-matches are conservatively left alone
// rather than partially rewritten.
func (m *Masker) Mask(text string) string {
	masked := text
	for _, pass := range m.passes {
		masked = pass.Apply(masked)
	}
	return masked
}

// Mask applies the default passes. Shorthand for callers that do not need a
// custom pass list.
func Mask(text string) string {
	return NewMasker().Mask(text)
}
