package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/ledger"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/pkg/apify"
)

type stubLedger struct{}

func (stubLedger) SeenKeys(context.Context, []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}
func (stubLedger) Commit(context.Context, []model.LedgerEntry) error { return nil }
func (stubLedger) Stats(context.Context) (ledger.Stats, error)       { return ledger.Stats{}, nil }
func (stubLedger) Migrate(context.Context) error                     { return nil }
func (stubLedger) Close() error                                      { return nil }

type stubSignals struct{}

func (stubSignals) SearchPosts(context.Context, string) ([]apify.SearchResult, error) {
	return nil, nil
}
func (stubSignals) PostEngagers(context.Context, string) ([]apify.Engager, error) { return nil, nil }
func (stubSignals) FetchProfiles(context.Context, []string) ([]apify.ProfileItem, error) {
	return nil, nil
}

func testEnv() *pipelineEnv {
	c := &config.Config{}
	c.Pipeline.Workers = 2
	c.HeyReach.ListID = 1
	p := pipeline.New(c, pipeline.Deps{
		Ledger:  stubLedger{},
		Signals: stubSignals{},
	})
	return &pipelineEnv{Ledger: stubLedger{}, Pipeline: p}
}

func TestServeMux_Health(t *testing.T) {
	mux := newServeMux(context.Background(), testEnv())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServeMux_CreateRunValidation(t *testing.T) {
	mux := newServeMux(context.Background(), testEnv())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "query is required")
}

func TestServeMux_RunLifecycle(t *testing.T) {
	mux := newServeMux(context.Background(), testEnv())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs",
		strings.NewReader(`{"query": "site:linkedin.com/posts \"sales automation\""}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, "run_id")
	id := extractJSONField(t, body, "run_id")

	// The stubbed discovery finds nothing, so the run finishes immediately.
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+id, nil))
		return strings.Contains(rec.Body.String(), `"status":"done"`)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunStore_GetReturnsSnapshot(t *testing.T) {
	store := newRunStore()
	rec := store.create("query")

	snapshot, ok := store.get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, "running", snapshot.Status)

	// Finishing the run must not reach into snapshots already handed out.
	store.finish(rec.ID, nil, assert.AnError)
	assert.Equal(t, "running", snapshot.Status)

	updated, ok := store.get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, "failed", updated.Status)
	assert.Equal(t, assert.AnError.Error(), updated.Error)
}

func TestServeMux_UnknownRun(t *testing.T) {
	mux := newServeMux(context.Background(), testEnv())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func extractJSONField(t *testing.T, body, field string) string {
	t.Helper()
	marker := `"` + field + `":"`
	i := strings.Index(body, marker)
	require.GreaterOrEqual(t, i, 0, "field %q not in %q", field, body)
	rest := body[i+len(marker):]
	j := strings.Index(rest, `"`)
	require.GreaterOrEqual(t, j, 0)
	return rest[:j]
}
