package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/cost"
	"github.com/sells-group/outreach-cli/internal/ledger"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/rules"
	anthropicpkg "github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/apify"
	"github.com/sells-group/outreach-cli/pkg/deepseek"
	"github.com/sells-group/outreach-cli/pkg/heyreach"
)

// pipelineEnv holds the initialized ledger, clients, and pipeline shared by
// the run/monitor/serve commands.
type pipelineEnv struct {
	Ledger   ledger.Ledger
	Pipeline *pipeline.Pipeline
	Costs    *cost.Tracker
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Ledger != nil {
		_ = pe.Ledger.Close()
	}
}

// initPipeline validates config for the given mode, opens the ledger, builds
// all API clients, and wires the pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	led, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return nil, err
	}
	if err := led.Migrate(ctx); err != nil {
		_ = led.Close()
		return nil, eris.Wrap(err, "migrate ledger")
	}

	var apifyOpts []apify.Option
	if cfg.Apify.BaseURL != "" {
		apifyOpts = append(apifyOpts, apify.WithBaseURL(cfg.Apify.BaseURL))
	}
	actors := apify.NewActors(apify.NewClient(cfg.Apify.Token, apifyOpts...), apify.ActorsConfig{
		SearchActor:      cfg.Apify.SearchActor,
		EngagersActor:    cfg.Apify.EngagersActor,
		ProfilesActor:    cfg.Apify.ProfilesActor,
		RunTimeout:       time.Duration(cfg.Apify.RunTimeoutSecs) * time.Second,
		MaxSearchResults: cfg.Apify.MaxSearchResults,
	})

	heyreachOpts := []heyreach.Option{heyreach.WithRateLimit(cfg.HeyReach.RateLimit)}
	if cfg.HeyReach.BaseURL != "" {
		heyreachOpts = append(heyreachOpts, heyreach.WithBaseURL(cfg.HeyReach.BaseURL))
	}
	uploader := heyreach.NewClient(cfg.HeyReach.Key, heyreachOpts...)

	claudeClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	deepseekOpts := []deepseek.Option{deepseek.WithModel(cfg.DeepSeek.Model)}
	if cfg.DeepSeek.BaseURL != "" {
		deepseekOpts = append(deepseekOpts, deepseek.WithBaseURL(cfg.DeepSeek.BaseURL))
	}
	deepseekClient := deepseek.NewClient(cfg.DeepSeek.Key, deepseekOpts...)

	rs := rules.Default()
	if cfg.Rules.Path != "" {
		rs, err = rules.Load(cfg.Rules.Path)
		if err != nil {
			_ = led.Close()
			return nil, eris.Wrap(err, "load rules")
		}
		zap.L().Info("loaded vocabulary overrides", zap.String("path", cfg.Rules.Path))
	}

	costs := cost.NewTracker(cfg.Pricing)

	p := pipeline.New(cfg, pipeline.Deps{
		Ledger:   led,
		Signals:  actors,
		Uploader: uploader,
		Claude:   claudeClient,
		DeepSeek: deepseekClient,
		Rules:    rs,
		Costs:    costs,
	})

	return &pipelineEnv{
		Ledger:   led,
		Pipeline: p,
		Costs:    costs,
	}, nil
}
