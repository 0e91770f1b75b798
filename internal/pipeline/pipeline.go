// Package pipeline turns discovered candidate profiles into a qualified,
// deduplicated, personalized, upload-confirmed lead set.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/cost"
	"github.com/sells-group/outreach-cli/internal/ledger"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/prefilter"
	"github.com/sells-group/outreach-cli/internal/rules"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/apify"
	"github.com/sells-group/outreach-cli/pkg/deepseek"
	"github.com/sells-group/outreach-cli/pkg/heyreach"
)

// enrichBatchSize caps profile URLs per enrichment actor run.
const enrichBatchSize = 25

// SignalSource provides discovery and profile enrichment.
type SignalSource interface {
	SearchPosts(ctx context.Context, query string) ([]apify.SearchResult, error)
	PostEngagers(ctx context.Context, postURL string) ([]apify.Engager, error)
	FetchProfiles(ctx context.Context, profileURLs []string) ([]apify.ProfileItem, error)
}

// Deps bundles the external collaborators a Pipeline needs.
type Deps struct {
	Ledger   ledger.Ledger
	Signals  SignalSource
	Uploader heyreach.Client
	Claude   anthropic.Client
	DeepSeek deepseek.Client
	Rules    *rules.RuleSet
	Costs    *cost.Tracker
}

// Pipeline orchestrates the per-candidate state machine: Discovered →
// PreFiltered → Enriched → Classified → Generated → Validated → Repaired →
// Committed or Excluded. One candidate failing never aborts the batch.
type Pipeline struct {
	cfg        *config.Config
	ledger     ledger.Ledger
	signals    SignalSource
	uploader   heyreach.Client
	filter     *prefilter.Filter
	classifier *Classifier
	generator  *Generator
	validator  *Validator
	costs      *cost.Tracker
}

// New wires a Pipeline from config and dependencies.
func New(cfg *config.Config, deps Deps) *Pipeline {
	rs := deps.Rules
	if rs == nil {
		rs = rules.Default()
	}
	return &Pipeline{
		cfg:        cfg,
		ledger:     deps.Ledger,
		signals:    deps.Signals,
		uploader:   deps.Uploader,
		filter:     prefilter.New(rs),
		classifier: NewClassifier(deps.Claude, cfg.Anthropic.Model, rs, deps.Costs),
		generator:  NewGenerator(deps.DeepSeek, cfg.DeepSeek.Model, rs, deps.Costs),
		validator:  NewValidator(deps.DeepSeek, cfg.DeepSeek.Model, deps.Costs),
		costs:      deps.Costs,
	}
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	Funnel       model.FunnelCounts
	Committed    []model.Lead
	ManualReview []model.Lead
	Partial      bool
	Costs        cost.Summary
}

// Monitor discovers candidates by searching for recent posts and collecting
// the people who engaged with them.
func (p *Pipeline) Monitor(ctx context.Context, query string) ([]model.CandidateRef, error) {
	results, err := p.signals.SearchPosts(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: search posts")
	}
	if p.costs != nil {
		p.costs.AddActorRun(cost.ActorSearch, len(results))
	}

	var refs []model.CandidateRef
	for _, r := range results {
		if !strings.Contains(r.URL, "linkedin.com/posts") {
			continue
		}
		engagers, err := p.signals.PostEngagers(ctx, r.URL)
		if err != nil {
			zap.L().Warn("skipping post, engager fetch failed",
				zap.String("post", r.URL),
				zap.Error(err))
			continue
		}
		if p.costs != nil {
			p.costs.AddActorRun(cost.ActorEngagers, len(engagers))
		}
		for _, e := range engagers {
			if e.ProfileURL == "" {
				continue
			}
			refs = append(refs, model.NewCandidateRef(e.ProfileURL, e.FullName, e.Headline, "engagement"))
		}
	}

	zap.L().Info("discovery complete",
		zap.String("query", query),
		zap.Int("posts", len(results)),
		zap.Int("candidates", len(refs)))
	return refs, nil
}

// Run processes a batch of candidates end to end and returns the funnel.
// It returns an error only for batch-level failures: a completely
// unavailable upload gateway or an unusable input set.
func (p *Pipeline) Run(ctx context.Context, refs []model.CandidateRef) (*RunResult, error) {
	result := &RunResult{}
	funnel := &result.Funnel
	funnel.Discovered = len(refs)

	if limit := p.cfg.Pipeline.MaxLeads; limit > 0 && len(refs) > limit {
		zap.L().Info("capping run size", zap.Int("limit", limit), zap.Int("discovered", len(refs)))
		refs = refs[:limit]
	}

	candidates := p.gate(ctx, refs, result)
	enriched := p.enrich(ctx, candidates, result)

	leads := p.process(ctx, enriched, result)

	confirmed, err := p.upload(ctx, leads, funnel)
	if err != nil {
		return result, err
	}
	result.Committed = confirmed

	if err := p.commit(ctx, confirmed); err != nil {
		zap.L().Error("ledger commit failed, run is partial; committed leads may be re-contacted",
			zap.Error(err))
		result.Partial = true
	}
	funnel.Committed = len(confirmed)

	if p.costs != nil {
		result.Costs = p.costs.Summary()
	}

	zap.L().Info("run complete",
		zap.Int("discovered", funnel.Discovered),
		zap.Int("committed", funnel.Committed),
		zap.Int("excluded", funnel.Excluded()),
		zap.Bool("partial", result.Partial))
	return result, nil
}

// gate dedups the batch against itself and the ledger, then pre-filters.
func (p *Pipeline) gate(ctx context.Context, refs []model.CandidateRef, result *RunResult) []model.CandidateRef {
	funnel := &result.Funnel

	unique := make([]model.CandidateRef, 0, len(refs))
	inBatch := make(map[string]bool, len(refs))
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.Key == "" || inBatch[ref.Key] {
			funnel.Duplicates++
			continue
		}
		inBatch[ref.Key] = true
		unique = append(unique, ref)
		keys = append(keys, ref.Key)
	}

	seen, err := p.ledger.SeenKeys(ctx, keys)
	if err != nil {
		// Degrade to assume-unseen: a duplicate upload is recoverable, a
		// silently dropped batch is not.
		zap.L().Warn("ledger read failed, assuming all candidates unseen", zap.Error(err))
		result.Partial = true
		seen = map[string]bool{}
	}

	out := make([]model.CandidateRef, 0, len(unique))
	for _, ref := range unique {
		if seen[ref.Key] {
			funnel.Duplicates++
			continue
		}
		if rejected, reason := p.filter.Evaluate(ref); rejected {
			funnel.PreFilterRejected++
			zap.L().Debug("pre-filter rejected candidate",
				zap.String("key", ref.Key),
				zap.String("reason", reason))
			continue
		}
		out = append(out, ref)
	}
	return out
}

// enriched pairs a candidate with its fetched profile.
type enrichedCandidate struct {
	ref     model.CandidateRef
	profile model.Profile
}

// enrich fetches profiles in batches and applies the usability gate. Every
// batch failing means the enrichment provider is unreachable: that is a
// batch-level failure, so the run is marked partial.
func (p *Pipeline) enrich(ctx context.Context, candidates []model.CandidateRef, result *RunResult) []enrichedCandidate {
	funnel := &result.Funnel
	profiles := make(map[string]model.Profile)

	batches, succeeded := 0, 0
	for start := 0; start < len(candidates); start += enrichBatchSize {
		end := min(start+enrichBatchSize, len(candidates))
		urls := make([]string, 0, end-start)
		for _, c := range candidates[start:end] {
			urls = append(urls, c.URL)
		}

		batches++
		items, err := p.signals.FetchProfiles(ctx, urls)
		if err != nil {
			zap.L().Warn("profile enrichment batch failed",
				zap.Int("batch_size", len(urls)),
				zap.Error(err))
			continue
		}
		succeeded++
		if p.costs != nil {
			p.costs.AddActorRun(cost.ActorProfiles, len(items))
		}
		for _, item := range items {
			profile := profileFromItem(item)
			profiles[model.CanonicalProfileURL(profile.URL)] = profile
		}
	}

	if batches > 0 && succeeded == 0 {
		zap.L().Error("all enrichment batches failed, provider unreachable; run is partial",
			zap.Int("batches", batches),
			zap.Int("candidates", len(candidates)))
		result.Partial = true
	}

	out := make([]enrichedCandidate, 0, len(candidates))
	for _, c := range candidates {
		profile, ok := profiles[c.Key]
		if !ok {
			funnel.EnrichmentFailed++
			continue
		}
		if !profile.Usable() {
			funnel.IncompleteProfile++
			zap.L().Debug("profile lacks headline and title+company",
				zap.String("key", c.Key))
			continue
		}
		out = append(out, enrichedCandidate{ref: c, profile: profile})
	}
	return out
}

// profileFromItem maps a scraped profile onto the pipeline's model.
func profileFromItem(item apify.ProfileItem) model.Profile {
	p := model.Profile{
		URL:         item.ProfileURL,
		FirstName:   item.FirstName,
		LastName:    item.LastName,
		FullName:    strings.TrimSpace(item.FirstName + " " + item.LastName),
		Title:       item.JobTitle,
		Headline:    item.Headline,
		CompanyName: item.CompanyName,
		Industry:    item.CompanyIndustry,
		Location:    item.Location,
		Summary:     item.About,
	}
	for _, exp := range item.Experiences {
		p.WorkHistory = append(p.WorkHistory, model.WorkEntry{
			Title:   exp.Title,
			Company: exp.CompanyName,
		})
		if p.CompanyDescription == "" && exp.CompanyName == item.CompanyName {
			p.CompanyDescription = exp.Description
		}
	}
	return p
}

// process runs classify → generate → validate → repair per candidate under a
// bounded worker pool. Failures exclude the candidate, never the batch.
func (p *Pipeline) process(ctx context.Context, candidates []enrichedCandidate, result *RunResult) []model.Lead {
	var (
		mu    sync.Mutex
		leads []model.Lead
	)
	funnel := &result.Funnel

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.Workers)

	for _, cand := range candidates {
		g.Go(func() error {
			lead, outcome := p.processOne(gctx, cand)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeNotQualified:
				funnel.NotQualified++
			case outcomeFailed:
				funnel.Failed++
			case outcomeManualReview:
				funnel.ManualReview++
				result.ManualReview = append(result.ManualReview, *lead)
			case outcomeValidated:
				funnel.Generated++
				funnel.Validated++
				leads = append(leads, *lead)
			case outcomeRepaired:
				funnel.Generated++
				funnel.Validated++
				funnel.Repaired++
				leads = append(leads, *lead)
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	return leads
}

type outcome int

const (
	outcomeNotQualified outcome = iota
	outcomeFailed
	outcomeManualReview
	outcomeValidated
	outcomeRepaired
)

func (p *Pipeline) processOne(ctx context.Context, cand enrichedCandidate) (*model.Lead, outcome) {
	log := zap.L().With(zap.String("key", cand.ref.Key))

	verdict := p.withTimeoutVerdict(ctx, &cand.profile)
	if !verdict.Matched {
		log.Debug("candidate not qualified",
			zap.String("reason", verdict.Reason),
			zap.String("source", string(verdict.Source)))
		return nil, outcomeNotQualified
	}

	msg, err := p.withTimeoutGenerate(ctx, &cand.profile, 1, nil)
	if err != nil {
		log.Warn("generation failed", zap.Error(err))
		return nil, outcomeFailed
	}

	score, err := p.withTimeoutValidate(ctx, &cand.profile, msg)
	if err != nil {
		log.Warn("validation failed", zap.Error(err))
		return nil, outcomeFailed
	}

	repaired := false
	if score.Flag != model.FlagPass {
		correction := &Correction{
			InferredService: score.InferredService,
			ActualService:   score.ActualService,
			Reason:          score.Reason,
		}
		msg2, err := p.withTimeoutGenerate(ctx, &cand.profile, msg.Version+1, correction)
		if err != nil {
			log.Warn("repair generation failed", zap.Error(err))
			return nil, outcomeFailed
		}
		score2, err := p.withTimeoutValidate(ctx, &cand.profile, msg2)
		if err != nil {
			log.Warn("repair validation failed", zap.Error(err))
			return nil, outcomeFailed
		}
		msg, score = msg2, score2
		repaired = true
	}

	lead := &model.Lead{
		Ref:     cand.ref,
		Profile: cand.profile,
		Verdict: verdict,
		Message: msg,
		Score:   score,
	}

	if score.Flag != model.FlagPass {
		log.Warn("message failed validation twice, flagged for manual review",
			zap.Float64("avg_score", score.AvgScore),
			zap.String("flag", string(score.Flag)))
		return lead, outcomeManualReview
	}
	if repaired {
		return lead, outcomeRepaired
	}
	return lead, outcomeValidated
}

func (p *Pipeline) callTimeout() time.Duration {
	if p.cfg.Pipeline.CallTimeoutSecs > 0 {
		return time.Duration(p.cfg.Pipeline.CallTimeoutSecs) * time.Second
	}
	return 60 * time.Second
}

func (p *Pipeline) withTimeoutVerdict(ctx context.Context, profile *model.Profile) model.QualificationVerdict {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout())
	defer cancel()
	return p.classifier.Classify(ctx, profile)
}

func (p *Pipeline) withTimeoutGenerate(ctx context.Context, profile *model.Profile, version int, corr *Correction) (model.GeneratedMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout())
	defer cancel()
	return p.generator.Generate(ctx, profile, version, corr)
}

func (p *Pipeline) withTimeoutValidate(ctx context.Context, profile *model.Profile, msg model.GeneratedMessage) (model.ValidationScore, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout())
	defer cancel()
	return p.validator.Validate(ctx, profile, msg)
}

// upload pushes validated leads to the campaign list and returns the
// upload-confirmed subset. Leads missing a declared template field are
// rejected before the call.
func (p *Pipeline) upload(ctx context.Context, leads []model.Lead, funnel *model.FunnelCounts) ([]model.Lead, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	declared := []string{TemplateFieldMessage}
	payload := make([]heyreach.Lead, 0, len(leads))
	byURL := make(map[string]model.Lead, len(leads))
	for _, lead := range leads {
		fields := map[string]string{
			TemplateFieldMessage: lead.Message.Body,
		}
		if err := VerifyTemplateFields(fields, declared); err != nil {
			funnel.UploadRejected++
			zap.L().Warn("lead rejected before upload", zap.String("key", lead.Ref.Key), zap.Error(err))
			continue
		}

		hr := heyreach.Lead{
			ProfileURL:  lead.Ref.URL,
			FirstName:   lead.Profile.FirstName,
			LastName:    lead.Profile.LastName,
			CompanyName: lead.Profile.CompanyName,
			Position:    lead.Profile.Title,
			Location:    lead.Profile.Location,
			Summary:     lead.Profile.Summary,
		}
		for name, value := range fields {
			hr.CustomFields = append(hr.CustomFields, heyreach.CustomField{Name: name, Value: value})
		}
		payload = append(payload, hr)
		byURL[lead.Ref.URL] = lead
	}
	if len(payload) == 0 {
		return nil, nil
	}

	report, err := p.uploader.AddLeadsToList(ctx, p.cfg.HeyReach.ListID, payload)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: upload leads")
	}

	confirmed := make([]model.Lead, 0, len(report.Accepted))
	for _, url := range report.Accepted {
		if lead, ok := byURL[url]; ok {
			confirmed = append(confirmed, lead)
		}
	}
	for url, reason := range report.Rejected {
		funnel.UploadRejected++
		zap.L().Warn("upload rejected lead",
			zap.String("url", url),
			zap.String("reason", reason))
	}
	return confirmed, nil
}

// commit records the confirmed leads in the ledger.
func (p *Pipeline) commit(ctx context.Context, confirmed []model.Lead) error {
	if len(confirmed) == 0 {
		return nil
	}
	entries := make([]model.LedgerEntry, 0, len(confirmed))
	now := time.Now().UTC()
	for _, lead := range confirmed {
		entries = append(entries, model.LedgerEntry{
			Key:         lead.Ref.Key,
			ListID:      p.cfg.HeyReach.ListID,
			Source:      lead.Ref.Source,
			CommittedAt: now,
		})
	}
	return p.ledger.Commit(ctx, entries)
}
