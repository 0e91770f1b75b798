// Package prefilter applies free local rejection checks to candidates
// before any paid enrichment call is made.
package prefilter

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/rules"
)

// Rejection reason codes.
const (
	ReasonNonLatinScript = "non_latin_script"
	ReasonNonEnglishRole = "non_english_role"
	ReasonDenylistedRole = "denylisted_role"
)

// maxNonLatinRatio is the fraction of non-Latin letters a snippet may carry
// before the candidate is treated as outside the campaign's language.
const maxNonLatinRatio = 0.15

// Filter evaluates candidates against the rule set's denylists.
type Filter struct {
	rules *rules.RuleSet
}

// New creates a Filter backed by the given rule set.
func New(rs *rules.RuleSet) *Filter {
	return &Filter{rules: rs}
}

// Evaluate returns true and a reason code if the candidate should be
// rejected before enrichment. The check is intentionally cheap: it only
// looks at the snippet carried on the ref.
func (f *Filter) Evaluate(ref model.CandidateRef) (bool, string) {
	snippet := strings.TrimSpace(ref.Snippet)
	if snippet == "" {
		return false, ""
	}

	if nonLatinRatio(snippet) > maxNonLatinRatio {
		return true, ReasonNonLatinScript
	}

	if _, ok := rules.ContainsAny(snippet, f.rules.NonEnglishRoleTokens); ok {
		return true, ReasonNonEnglishRole
	}

	if _, ok := rules.ContainsAny(snippet, f.rules.PreFilterTokens); ok {
		return true, ReasonDenylistedRole
	}

	return false, ""
}

// nonLatinRatio returns the fraction of letters in s that fall outside the
// Latin script. The string is NFC-normalized first so combining marks on
// accented Latin letters don't count against it.
func nonLatinRatio(s string) float64 {
	var letters, nonLatin int
	for _, r := range norm.NFC.String(s) {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if !unicode.Is(unicode.Latin, r) {
			nonLatin++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(nonLatin) / float64(letters)
}
