package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/cost"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/rules"
	"github.com/sells-group/outreach-cli/pkg/deepseek"
)

// Correction carries the validator's findings into a regeneration: what the
// previous version claimed versus what the profile data supports.
type Correction struct {
	InferredService string
	ActualService   string
	Reason          string
}

// Generator produces the variable slots of the five-line message. The LLM
// only ever returns slot values; the fixed wording is assembled locally so
// template text cannot drift.
type Generator struct {
	llm   deepseek.Client
	model string
	rules *rules.RuleSet
	costs *cost.Tracker
	retry resilience.RetryConfig
}

// NewGenerator creates a Generator.
func NewGenerator(llm deepseek.Client, modelID string, rs *rules.RuleSet, costs *cost.Tracker) *Generator {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("deepseek", "generate")
	return &Generator{
		llm:   llm,
		model: modelID,
		rules: rs,
		costs: costs,
		retry: retry,
	}
}

// slotResponse is the JSON the generation prompt asks for.
type slotResponse struct {
	Service      string `json:"service"`
	Method       string `json:"method"`
	AuthorityKey string `json:"authority_key"`
}

// Generate infers the service/method/authority slots for a profile and
// assembles the message body. When correction is non-nil the prompt carries
// the prior wrong inference and the result replaces the previous version.
func (g *Generator) Generate(ctx context.Context, p *model.Profile, version int, correction *Correction) (model.GeneratedMessage, error) {
	temp := 0.7
	maxTokens := 400
	req := deepseek.ChatCompletionRequest{
		Model:          g.model,
		Temperature:    &temp,
		MaxTokens:      &maxTokens,
		ResponseFormat: deepseek.JSONObject(),
		Messages: []deepseek.Message{
			{Role: "user", Content: g.slotPrompt(p, correction)},
		},
	}

	resp, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*deepseek.ChatCompletionResponse, error) {
		return g.llm.ChatCompletion(ctx, req)
	})
	if err != nil {
		return model.GeneratedMessage{}, eris.Wrap(err, "pipeline: generate message")
	}

	if g.costs != nil {
		g.costs.AddDeepSeek(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	var slots slotResponse
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &slots); err != nil {
		return model.GeneratedMessage{}, eris.Wrap(err, "pipeline: parse generation slots")
	}
	if strings.TrimSpace(slots.Service) == "" || strings.TrimSpace(slots.Method) == "" {
		return model.GeneratedMessage{}, eris.New("pipeline: generation returned empty service or method slot")
	}

	msgSlots := model.MessageSlots{
		FirstName:    p.FirstName,
		Company:      CasualCompanyName(p.CompanyName),
		Service:      strings.TrimSpace(slots.Service),
		Method:       strings.TrimSpace(slots.Method),
		AuthorityKey: strings.TrimSpace(slots.AuthorityKey),
		City:         CityFromLocation(p.Location),
	}
	body, msgSlots := AssembleMessage(g.rules, msgSlots)

	return model.GeneratedMessage{
		Version: version,
		Body:    body,
		Slots:   msgSlots,
	}, nil
}

func (g *Generator) slotPrompt(p *model.Profile, correction *Correction) string {
	keys := g.rules.AuthorityKeys()
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`You fill the variable slots of a 5-line LinkedIn DM template. The fixed wording is assembled separately; you only infer what goes in the brackets.

Slots to infer:
- "service": what the person's company sells. Infer it from their headline and company description, NOT just the title or company name. Keep it short and casual ("paid ads", "outbound", "executive search", "lead gen", "HR consulting").
- "method": how that service is commonly delivered, phrased as a casual pairing ("Google + Meta", "LinkedIn + email", "retained + contingency", "design + positioning").
- "authority_key": the closest industry key from this closed menu: `)
	b.WriteString(strings.Join(keys, ", "))
	b.WriteString(".\n\nLead Information:\n")
	fmt.Fprintf(&b, "- First Name: %s\n", p.FirstName)
	fmt.Fprintf(&b, "- Company: %s\n", p.CompanyName)
	fmt.Fprintf(&b, "- Title: %s\n", orNA(p.Title))
	fmt.Fprintf(&b, "- Headline: %s\n", orNA(p.Headline))
	fmt.Fprintf(&b, "- Company Description: %s\n", orNA(p.CompanyDescription))
	fmt.Fprintf(&b, "- Location: %s\n", orNA(p.Location))

	if correction != nil {
		b.WriteString("\nA previous attempt inferred the service incorrectly.\n")
		fmt.Fprintf(&b, "- Previous (wrong) inference: %s\n", correction.InferredService)
		fmt.Fprintf(&b, "- What the profile data actually supports: %s\n", correction.ActualService)
		if correction.Reason != "" {
			fmt.Fprintf(&b, "- Validator notes: %s\n", correction.Reason)
		}
		b.WriteString("Produce corrected slots consistent with the actual service.\n")
	}

	b.WriteString(`
Respond with JSON only:
{"service": "...", "method": "...", "authority_key": "..."}`)
	return b.String()
}
