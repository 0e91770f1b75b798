// Package cost tracks per-run provider spend across the scraper actors and
// the two LLM providers.
package cost

import "sync"

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	DeepSeek  ModelRate            `yaml:"deepseek" mapstructure:"deepseek"`
	Apify     ApifyRate            `yaml:"apify" mapstructure:"apify"`
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ApifyRate holds per-actor-result pricing.
type ApifyRate struct {
	PerSearchResult  float64 `yaml:"per_search_result" mapstructure:"per_search_result"`
	PerEngagerResult float64 `yaml:"per_engager_result" mapstructure:"per_engager_result"`
	PerProfileResult float64 `yaml:"per_profile_result" mapstructure:"per_profile_result"`
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		DeepSeek: ModelRate{Input: 0.27, Output: 1.10},
		Apify: ApifyRate{
			PerSearchResult:  0.002,
			PerEngagerResult: 0.002,
			PerProfileResult: 0.004,
		},
	}
}

// Tracker accumulates spend for a single run. Safe for concurrent use by
// the worker pool.
type Tracker struct {
	mu    sync.Mutex
	rates Rates

	claudeUSD   float64
	deepseekUSD float64
	apifyUSD    float64

	claudeCalls   int
	deepseekCalls int
	actorRuns     int
}

// NewTracker creates a Tracker with the given rates.
func NewTracker(rates Rates) *Tracker {
	return &Tracker{rates: rates}
}

// AddClaude records a Claude call's token usage. Unknown models record the
// call but contribute zero cost.
func (t *Tracker) AddClaude(model string, inputTokens, outputTokens int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.claudeCalls++
	rate, ok := t.rates.Anthropic[model]
	if !ok {
		return
	}
	t.claudeUSD += (float64(inputTokens)/1e6)*rate.Input + (float64(outputTokens)/1e6)*rate.Output
}

// AddDeepSeek records a DeepSeek call's token usage.
func (t *Tracker) AddDeepSeek(inputTokens, outputTokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.deepseekCalls++
	t.deepseekUSD += (float64(inputTokens)/1e6)*t.rates.DeepSeek.Input +
		(float64(outputTokens)/1e6)*t.rates.DeepSeek.Output
}

// Actor result kinds for AddActorRun.
const (
	ActorSearch   = "search"
	ActorEngagers = "engagers"
	ActorProfiles = "profiles"
)

// AddActorRun records a scraper actor run priced per result item.
func (t *Tracker) AddActorRun(kind string, results int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.actorRuns++
	switch kind {
	case ActorSearch:
		t.apifyUSD += float64(results) * t.rates.Apify.PerSearchResult
	case ActorEngagers:
		t.apifyUSD += float64(results) * t.rates.Apify.PerEngagerResult
	case ActorProfiles:
		t.apifyUSD += float64(results) * t.rates.Apify.PerProfileResult
	}
}

// Summary is a snapshot of accumulated spend.
type Summary struct {
	ClaudeUSD     float64 `json:"claude_usd"`
	DeepSeekUSD   float64 `json:"deepseek_usd"`
	ApifyUSD      float64 `json:"apify_usd"`
	TotalUSD      float64 `json:"total_usd"`
	ClaudeCalls   int     `json:"claude_calls"`
	DeepSeekCalls int     `json:"deepseek_calls"`
	ActorRuns     int     `json:"actor_runs"`
}

// Summary returns the current spend snapshot.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Summary{
		ClaudeUSD:     t.claudeUSD,
		DeepSeekUSD:   t.deepseekUSD,
		ApifyUSD:      t.apifyUSD,
		TotalUSD:      t.claudeUSD + t.deepseekUSD + t.apifyUSD,
		ClaudeCalls:   t.claudeCalls,
		DeepSeekCalls: t.deepseekCalls,
		ActorRuns:     t.actorRuns,
	}
}
