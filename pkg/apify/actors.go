package apify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ActorsConfig names the actors used for discovery and enrichment.
type ActorsConfig struct {
	SearchActor      string
	EngagersActor    string
	ProfilesActor    string
	RunTimeout       time.Duration
	MaxSearchResults int
}

// Actors wraps a Client with typed run helpers for the three scraper actors.
type Actors struct {
	client Client
	cfg    ActorsConfig
}

// NewActors creates typed actor helpers on top of a Client.
func NewActors(client Client, cfg ActorsConfig) *Actors {
	if cfg.RunTimeout == 0 {
		cfg.RunTimeout = 10 * time.Minute
	}
	return &Actors{client: client, cfg: cfg}
}

// SearchResult is one organic result from the Google search actor.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// searchPage is one dataset item from the Google search actor: a results
// page with its organic hits.
type searchPage struct {
	SearchQuery    string         `json:"searchQuery"`
	OrganicResults []SearchResult `json:"organicResults"`
}

// Engager is one reaction from the post engagers actor.
type Engager struct {
	ProfileURL   string `json:"profileUrl"`
	FullName     string `json:"fullName"`
	Headline     string `json:"headline"`
	ReactionType string `json:"reactionType"`
}

// ProfileExperience is one work entry on a scraped profile.
type ProfileExperience struct {
	Title       string `json:"title"`
	CompanyName string `json:"companyName"`
	Description string `json:"description"`
}

// ProfileItem is one scraped LinkedIn profile from the profiles actor.
type ProfileItem struct {
	ProfileURL      string              `json:"linkedinUrl"`
	FirstName       string              `json:"firstName"`
	LastName        string              `json:"lastName"`
	Headline        string              `json:"headline"`
	JobTitle        string              `json:"jobTitle"`
	CompanyName     string              `json:"companyName"`
	CompanyIndustry string              `json:"companyIndustry"`
	CompanySize     string              `json:"companySize"`
	Location        string              `json:"addressWithCountry"`
	About           string              `json:"about"`
	Experiences     []ProfileExperience `json:"experiences"`
}

// SearchPosts runs the Google search actor for the given query and returns
// the flattened organic results.
func (a *Actors) SearchPosts(ctx context.Context, query string) ([]SearchResult, error) {
	input := map[string]any{
		"queries":          query,
		"resultsPerPage":   a.cfg.MaxSearchResults,
		"maxPagesPerQuery": 1,
	}

	var pages []searchPage
	if err := a.runAndFetch(ctx, a.cfg.SearchActor, input, &pages); err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, p := range pages {
		results = append(results, p.OrganicResults...)
	}
	if a.cfg.MaxSearchResults > 0 && len(results) > a.cfg.MaxSearchResults {
		results = results[:a.cfg.MaxSearchResults]
	}
	return results, nil
}

// PostEngagers runs the reactions actor for a post URL and returns the
// people who engaged with it.
func (a *Actors) PostEngagers(ctx context.Context, postURL string) ([]Engager, error) {
	input := map[string]any{
		"postUrls": []string{postURL},
	}

	var engagers []Engager
	if err := a.runAndFetch(ctx, a.cfg.EngagersActor, input, &engagers); err != nil {
		return nil, err
	}
	return engagers, nil
}

// FetchProfiles runs the profile scraper for a batch of profile URLs.
func (a *Actors) FetchProfiles(ctx context.Context, profileURLs []string) ([]ProfileItem, error) {
	if len(profileURLs) == 0 {
		return nil, nil
	}
	input := map[string]any{
		"profileUrls": profileURLs,
	}

	var profiles []ProfileItem
	if err := a.runAndFetch(ctx, a.cfg.ProfilesActor, input, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (a *Actors) runAndFetch(ctx context.Context, actorID string, input, out any) error {
	run, err := a.client.StartRun(ctx, actorID, input)
	if err != nil {
		return err
	}

	zap.L().Info("apify run started",
		zap.String("actor", actorID),
		zap.String("run_id", run.ID))

	run, err = WaitForRun(ctx, a.client, run.ID, a.cfg.RunTimeout)
	if err != nil {
		return err
	}

	return a.client.DatasetItems(ctx, run.DefaultDatasetID, out)
}
