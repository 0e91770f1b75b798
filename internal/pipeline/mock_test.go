package pipeline

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/ledger"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/apify"
)

// fakeLedger is an in-memory Ledger for pipeline tests.
type fakeLedger struct {
	seen      map[string]bool
	committed []model.LedgerEntry
	seenErr   error
	commitErr error
}

func newFakeLedger(seenKeys ...string) *fakeLedger {
	seen := make(map[string]bool, len(seenKeys))
	for _, k := range seenKeys {
		seen[k] = true
	}
	return &fakeLedger{seen: seen}
}

func (f *fakeLedger) SeenKeys(_ context.Context, keys []string) (map[string]bool, error) {
	if f.seenErr != nil {
		return nil, f.seenErr
	}
	out := make(map[string]bool)
	for _, k := range keys {
		if f.seen[k] {
			out[k] = true
		}
	}
	return out, nil
}

func (f *fakeLedger) Commit(_ context.Context, entries []model.LedgerEntry) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, entries...)
	return nil
}

func (f *fakeLedger) Stats(context.Context) (ledger.Stats, error) {
	return ledger.Stats{Total: int64(len(f.committed))}, nil
}

func (f *fakeLedger) Migrate(context.Context) error { return nil }
func (f *fakeLedger) Close() error                  { return nil }

// fakeSignals serves canned search/engager/profile data.
type fakeSignals struct {
	searchResults []apify.SearchResult
	engagers      map[string][]apify.Engager
	profiles      []apify.ProfileItem
	profileErr    error
	fetchCalls    int
	fetchedURLs   []string
}

func (f *fakeSignals) SearchPosts(context.Context, string) ([]apify.SearchResult, error) {
	return f.searchResults, nil
}

func (f *fakeSignals) PostEngagers(_ context.Context, postURL string) ([]apify.Engager, error) {
	return f.engagers[postURL], nil
}

func (f *fakeSignals) FetchProfiles(_ context.Context, urls []string) ([]apify.ProfileItem, error) {
	f.fetchCalls++
	f.fetchedURLs = append(f.fetchedURLs, urls...)
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	want := make(map[string]bool, len(urls))
	for _, u := range urls {
		want[model.CanonicalProfileURL(u)] = true
	}
	var out []apify.ProfileItem
	for _, p := range f.profiles {
		if want[model.CanonicalProfileURL(p.ProfileURL)] {
			out = append(out, p)
		}
	}
	return out, nil
}
