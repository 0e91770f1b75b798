package model

import (
	"strings"
	"time"
)

// Stage represents where a candidate currently sits in the funnel.
type Stage string

const (
	StageDiscovered  Stage = "discovered"
	StagePreFiltered Stage = "pre_filtered"
	StageEnriched    Stage = "enriched"
	StageClassified  Stage = "classified"
	StageGenerated   Stage = "generated"
	StageValidated   Stage = "validated"
	StageRepaired    Stage = "repaired"
	StageCommitted   Stage = "committed"
	StageExcluded    Stage = "excluded"
)

// CandidateRef is the minimal identity of a discovered person: enough to
// dedup against the ledger and run the pre-filter, nothing more. Immutable
// once constructed.
type CandidateRef struct {
	Key     string `json:"key"`
	URL     string `json:"url"`
	Name    string `json:"name"`
	Snippet string `json:"snippet,omitempty"`
	Source  string `json:"source,omitempty"`
}

// NewCandidateRef builds a CandidateRef with its canonical key derived from
// the raw profile URL.
func NewCandidateRef(rawURL, name, snippet, source string) CandidateRef {
	return CandidateRef{
		Key:     CanonicalProfileURL(rawURL),
		URL:     strings.TrimSpace(rawURL),
		Name:    strings.TrimSpace(name),
		Snippet: strings.TrimSpace(snippet),
		Source:  source,
	}
}

// CanonicalProfileURL normalizes a profile URL into the identity key used by
// the ledger: lowercase, query string stripped, trailing slash stripped.
// Two URLs that differ only in case, tracking params, or a trailing slash
// must map to the same key.
func CanonicalProfileURL(rawURL string) string {
	u := strings.ToLower(strings.TrimSpace(rawURL))
	if i := strings.Index(u, "?"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}

// WorkEntry is a single position in a profile's work history.
type WorkEntry struct {
	Title     string `json:"title"`
	Company   string `json:"company"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Current   bool   `json:"current,omitempty"`
}

// Profile is the enriched view of a candidate.
type Profile struct {
	URL                string      `json:"url"`
	FullName           string      `json:"full_name"`
	FirstName          string      `json:"first_name"`
	LastName           string      `json:"last_name"`
	Title              string      `json:"title"`
	Headline           string      `json:"headline"`
	CompanyName        string      `json:"company_name"`
	CompanyDescription string      `json:"company_description,omitempty"`
	Industry           string      `json:"industry,omitempty"`
	Location           string      `json:"location,omitempty"`
	Summary            string      `json:"summary,omitempty"`
	WorkHistory        []WorkEntry `json:"work_history,omitempty"`
}

// Usable reports whether the profile carries enough signal to qualify and
// personalize. A profile with neither a headline nor a title+company pair
// cannot be reasoned about and is excluded at the enrichment boundary.
func (p *Profile) Usable() bool {
	if strings.TrimSpace(p.Headline) != "" {
		return true
	}
	return strings.TrimSpace(p.Title) != "" && strings.TrimSpace(p.CompanyName) != ""
}

// VerdictSource records which path produced a qualification verdict.
type VerdictSource string

const (
	VerdictSourceLLM   VerdictSource = "llm"
	VerdictSourceLocal VerdictSource = "local"
)

// QualificationVerdict is the classifier's decision for one profile.
type QualificationVerdict struct {
	Matched    bool          `json:"match"`
	Confidence string        `json:"confidence"` // "high", "medium", "low"
	Reason     string        `json:"reason"`
	Source     VerdictSource `json:"source"`
}

// MessageSlots holds the variable parts of a generated message. Everything
// outside these slots is fixed template text.
type MessageSlots struct {
	FirstName    string `json:"first_name"`
	Company      string `json:"company"`
	Service      string `json:"service"`
	Method       string `json:"method"`
	AuthorityKey string `json:"authority_key"`
	City         string `json:"city"`
}

// GeneratedMessage is one version of the outreach message for a candidate.
// Regeneration after a failed validation produces a new version; only the
// latest surviving version is ever uploaded.
type GeneratedMessage struct {
	Version int          `json:"version"`
	Body    string       `json:"body"`
	Slots   MessageSlots `json:"slots"`
}

// ValidationFlag is the validator's verdict bucket.
type ValidationFlag string

const (
	FlagPass   ValidationFlag = "PASS"
	FlagReview ValidationFlag = "REVIEW"
	FlagFail   ValidationFlag = "FAIL"
)

// ValidationScore is the LLM-as-judge assessment of a generated message.
type ValidationScore struct {
	ServiceScore    float64        `json:"service_score"`
	MethodScore     float64        `json:"method_score"`
	AuthorityScore  float64        `json:"authority_score"`
	AvgScore        float64        `json:"avg_score"`
	Flag            ValidationFlag `json:"flag"`
	InferredService string         `json:"inferred_service,omitempty"`
	ActualService   string         `json:"actual_service,omitempty"`
	Reason          string         `json:"reason,omitempty"`
}

// FlagFor maps an average score to a validation flag.
func FlagFor(avg float64) ValidationFlag {
	switch {
	case avg >= 4.0:
		return FlagPass
	case avg >= 2.5:
		return FlagReview
	default:
		return FlagFail
	}
}

// LedgerEntry records a contacted person. Entries exist only for candidates
// whose upload was confirmed by the campaign system.
type LedgerEntry struct {
	Key         string    `json:"key"`
	ListID      int       `json:"list_id"`
	Source      string    `json:"source,omitempty"`
	CommittedAt time.Time `json:"committed_at"`
}

// Lead is an upload-ready candidate: a qualified, enriched profile with its
// final validated message.
type Lead struct {
	Ref     CandidateRef         `json:"ref"`
	Profile Profile              `json:"profile"`
	Verdict QualificationVerdict `json:"verdict"`
	Message GeneratedMessage     `json:"message"`
	Score   ValidationScore      `json:"score"`
}

// FunnelCounts tallies candidate outcomes per stage for a run. It is the
// run's primary operational visibility.
type FunnelCounts struct {
	Discovered        int `json:"discovered"`
	Duplicates        int `json:"duplicates"`
	PreFilterRejected int `json:"prefilter_rejected"`
	EnrichmentFailed  int `json:"enrichment_failed"`
	IncompleteProfile int `json:"incomplete_profile"`
	NotQualified      int `json:"not_qualified"`
	Failed            int `json:"failed"`
	Generated         int `json:"generated"`
	Validated         int `json:"validated"`
	Repaired          int `json:"repaired"`
	ManualReview      int `json:"manual_review"`
	UploadRejected    int `json:"upload_rejected"`
	Committed         int `json:"committed"`
}

// Excluded is the total number of candidates that entered the funnel but did
// not reach the campaign list.
func (f FunnelCounts) Excluded() int {
	return f.Duplicates + f.PreFilterRejected + f.EnrichmentFailed +
		f.IncompleteProfile + f.NotQualified + f.Failed + f.ManualReview +
		f.UploadRejected
}
