package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/cost"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/rules"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
)

const classifierSystemPrompt = `Role: B2B Lead Qualification Filter.

Objective: Categorize LinkedIn profiles based on Authority and Industry fit for a Sales Automation and Personal Branding agency.

Rules for Authority (Strict):
- Qualify: CEOs, Founders, Co-Founders, Managing Directors, Owners, Partners, VPs, and C-Suite executives.
- Reject: Interns, Students, Junior staff, Administrative assistants, and low-level individual contributors.

Rules for B2B Industry (Lenient):
- Qualify: High-ticket service industries (Agencies, SaaS, Consulting, Coaching, Tech).

The "Benefit of Doubt" Rule: If you are unsure if a business is B2B or B2C, or unsure if the person is a top-level decision-maker, Qualify them (Set match to true). Only reject if they are clearly non-decision makers or in non-business roles.

Hard Rejections:
- Leads from massive traditional Banking/Financial institutions.
- Physical labor or local retail roles (e.g., Driver, Technician, Cashier).

You are an expert at evaluating sales leads. Always respond with valid JSON.`

// Classifier decides whether a profile matches the ideal customer profile.
// Primary path is the LLM; any provider failure falls back to the local rule
// engine so a candidate is never lost to an outage.
type Classifier struct {
	llm   anthropic.Client
	model string
	rules *rules.RuleSet
	costs *cost.Tracker
	retry resilience.RetryConfig
}

// NewClassifier creates a Classifier. A nil llm forces the local path.
func NewClassifier(llm anthropic.Client, modelID string, rs *rules.RuleSet, costs *cost.Tracker) *Classifier {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("anthropic", "classify")
	return &Classifier{
		llm:   llm,
		model: modelID,
		rules: rs,
		costs: costs,
		retry: retry,
	}
}

// Classify returns a verdict for the profile. It never returns an error for
// provider failures: those degrade to the local rule engine and the verdict's
// Source records the degradation.
func (c *Classifier) Classify(ctx context.Context, p *model.Profile) model.QualificationVerdict {
	if c.llm == nil {
		return c.classifyLocal(p)
	}

	verdict, err := c.classifyLLM(ctx, p)
	if err != nil {
		zap.L().Warn("classifier falling back to local rules",
			zap.String("profile", p.URL),
			zap.Error(err))
		return c.classifyLocal(p)
	}
	return verdict
}

func (c *Classifier) classifyLLM(ctx context.Context, p *model.Profile) (model.QualificationVerdict, error) {
	temp := 0.3
	req := anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   150,
		Temperature: &temp,
		System:      anthropic.BuildCachedSystemBlocks(classifierSystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: classifyUserPrompt(p)},
		},
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return c.llm.CreateMessage(ctx, req)
	})
	if err != nil {
		return model.QualificationVerdict{}, err
	}

	if c.costs != nil {
		c.costs.AddClaude(c.model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	resp.Usage.LogCost(c.model, "classify")

	verdict, err := parseVerdict(resp.Text())
	if err != nil {
		return model.QualificationVerdict{}, err
	}
	verdict.Source = model.VerdictSourceLLM
	return verdict, nil
}

func classifyUserPrompt(p *model.Profile) string {
	companyDesc := p.CompanyDescription
	if companyDesc == "" {
		companyDesc = p.Summary
	}
	if len(companyDesc) > 300 {
		companyDesc = companyDesc[:300]
	}

	summary := fmt.Sprintf(`Lead: %s
Title: %s
Headline: %s
Company: %s
Company Description: %s
Location: %s
Industry: %s`,
		orNA(p.FullName), orNA(p.Title), orNA(p.Headline), orNA(p.CompanyName),
		orNA(companyDesc), orNA(p.Location), orNA(p.Industry))

	return fmt.Sprintf(`Evaluate this LinkedIn profile:

%s

Respond in JSON format:
{
  "match": true/false,
  "confidence": "high" | "medium" | "low",
  "reason": "Brief explanation (1 sentence)"
}`, summary)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func parseVerdict(raw string) (model.QualificationVerdict, error) {
	var verdict model.QualificationVerdict
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &verdict); err != nil {
		return verdict, eris.Wrap(err, "pipeline: parse classifier verdict")
	}
	return verdict, nil
}

// cleanJSON strips markdown code fences the model sometimes wraps around its
// JSON output.
func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// classifyLocal re-implements the classifier's checks over the rule
// vocabulary: deny title rejects, hard-reject organization rejects, deny
// industry rejects, allow hits qualify, and anything ambiguous qualifies on
// benefit of doubt.
func (c *Classifier) classifyLocal(p *model.Profile) model.QualificationVerdict {
	role := p.Title
	if role == "" {
		role = p.Headline
	}

	if tok, hit := rules.ContainsAny(role, c.rules.DenyTitles); hit {
		return localVerdict(false, "high", fmt.Sprintf("Rejected title: %s", tok))
	}
	if tok, hit := rules.ContainsAny(p.CompanyName, c.rules.DenyOrganizations); hit {
		return localVerdict(false, "high", fmt.Sprintf("Rejected company: %s", tok))
	}
	if tok, hit := rules.ContainsAny(p.Industry, c.rules.DenyIndustries); hit {
		return localVerdict(false, "high", fmt.Sprintf("Rejected industry: %s", tok))
	}

	titleHit, hasTitle := rules.ContainsAny(role, c.rules.AllowTitles)
	industryHit, hasIndustry := rules.ContainsAny(p.Industry, c.rules.AllowIndustries)
	if hasTitle && hasIndustry {
		return localVerdict(true, "high", fmt.Sprintf("Qualified title: %s, industry: %s", titleHit, industryHit))
	}
	if hasTitle || hasIndustry {
		hit := titleHit
		if hit == "" {
			hit = industryHit
		}
		return localVerdict(true, "medium", fmt.Sprintf("Qualified on: %s", hit))
	}

	// Benefit of doubt: ambiguous profiles qualify at low confidence.
	return localVerdict(true, "low", "No strong signal either way, qualifying on benefit of doubt")
}

func localVerdict(matched bool, confidence, reason string) model.QualificationVerdict {
	return model.QualificationVerdict{
		Matched:    matched,
		Confidence: confidence,
		Reason:     reason,
		Source:     model.VerdictSourceLocal,
	}
}
