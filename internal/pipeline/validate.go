package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/cost"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/deepseek"
)

const validationPromptHeader = `You are a strict accuracy validator for LinkedIn outreach messages.

Given the INPUT DATA (what we know about this person) and the GENERATED MESSAGE (what we sent them), score the accuracy.`

const validationPromptRubric = `MESSAGE STRUCTURE (5 parts):
1. Greeting: "Hey [Name]"
2. Company hook: "[Company] looks interesting"
3. Service question: "You guys do [service] right? Do that w [method]? Or what"
4. Authority statement: TWO lines about their industry
5. Location hook: Casual/informal paragraph about location - IGNORE THIS for scoring (it's intentionally conversational)

SCORE EACH (1-5 scale, where 1=completely wrong, 3=partially accurate, 5=spot on):

1. **Service Accuracy**: Does the "[service]" in part 3 accurately reflect what the company actually does?
2. **Method Accuracy**: Is the "[method]" in part 3 realistic for that service type?
3. **Authority Statement Relevance**: Does the 2-line authority statement (part 4, NOT the location hook) apply to their industry?

Return ONLY valid JSON (no markdown, no explanation):
{"service_score": X, "method_score": X, "authority_score": X, "avg_score": X.X, "inferred_service": "what message claims they do", "actual_service": "what they actually do based on data", "flag": "PASS|REVIEW|FAIL", "reason": "1-2 sentence explanation if REVIEW or FAIL"}

Flag rules:
- PASS: avg_score >= 4.0
- REVIEW: avg_score >= 2.5 and < 4.0
- FAIL: avg_score < 2.5`

// Validator scores a generated message against the profile it was generated
// from, LLM-as-judge style.
type Validator struct {
	llm   deepseek.Client
	model string
	costs *cost.Tracker
	retry resilience.RetryConfig
}

// NewValidator creates a Validator.
func NewValidator(llm deepseek.Client, modelID string, costs *cost.Tracker) *Validator {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("deepseek", "validate")
	return &Validator{
		llm:   llm,
		model: modelID,
		costs: costs,
		retry: retry,
	}
}

// Validate scores msg against p. The flag is always recomputed locally from
// the average so the thresholds cannot drift with the judge's mood.
func (v *Validator) Validate(ctx context.Context, p *model.Profile, msg model.GeneratedMessage) (model.ValidationScore, error) {
	temp := 0.1
	maxTokens := 500
	req := deepseek.ChatCompletionRequest{
		Model:       v.model,
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		Messages: []deepseek.Message{
			{Role: "user", Content: validationPrompt(p, msg)},
		},
	}

	resp, err := resilience.DoVal(ctx, v.retry, func(ctx context.Context) (*deepseek.ChatCompletionResponse, error) {
		return v.llm.ChatCompletion(ctx, req)
	})
	if err != nil {
		return model.ValidationScore{}, eris.Wrap(err, "pipeline: validate message")
	}

	if v.costs != nil {
		v.costs.AddDeepSeek(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	var score model.ValidationScore
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &score); err != nil {
		return model.ValidationScore{}, eris.Wrap(err, "pipeline: parse validation score")
	}

	if score.AvgScore == 0 {
		score.AvgScore = (score.ServiceScore + score.MethodScore + score.AuthorityScore) / 3
	}
	score.Flag = model.FlagFor(score.AvgScore)
	return score, nil
}

func validationPrompt(p *model.Profile, msg model.GeneratedMessage) string {
	var b strings.Builder
	b.WriteString(validationPromptHeader)
	b.WriteString("\n\nINPUT DATA:\n")
	fmt.Fprintf(&b, "- Full Name: %s\n", orNA(p.FullName))
	fmt.Fprintf(&b, "- Headline: %s\n", orNA(p.Headline))
	fmt.Fprintf(&b, "- Job Title: %s\n", orNA(p.Title))
	fmt.Fprintf(&b, "- Company: %s\n", orNA(p.CompanyName))
	fmt.Fprintf(&b, "- Company Description: %s\n", orNA(p.CompanyDescription))
	fmt.Fprintf(&b, "- Company Industry: %s\n", orNA(p.Industry))
	fmt.Fprintf(&b, "- Summary: %s\n", orNA(p.Summary))
	b.WriteString("\nGENERATED MESSAGE:\n")
	b.WriteString(msg.Body)
	b.WriteString("\n\n")
	b.WriteString(validationPromptRubric)
	return b.String()
}
