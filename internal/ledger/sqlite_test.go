package ledger

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, l.Migrate(context.Background()))
	t.Cleanup(func() { l.Close() })
	return l
}

func entry(key string) model.LedgerEntry {
	return model.LedgerEntry{
		Key:         key,
		ListID:      42,
		Source:      "competitor-post",
		CommittedAt: time.Now().UTC(),
	}
}

func TestSQLite_SeenKeysEmptyLedger(t *testing.T) {
	l := newTestLedger(t)

	seen, err := l.SeenKeys(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestSQLite_CommitThenSeen(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Commit(ctx, []model.LedgerEntry{
		entry("https://www.linkedin.com/in/jane-doe"),
		entry("https://www.linkedin.com/in/john-smith"),
	}))

	seen, err := l.SeenKeys(ctx, []string{
		"https://www.linkedin.com/in/jane-doe",
		"https://www.linkedin.com/in/john-smith",
		"https://www.linkedin.com/in/never-contacted",
	})
	require.NoError(t, err)
	assert.True(t, seen["https://www.linkedin.com/in/jane-doe"])
	assert.True(t, seen["https://www.linkedin.com/in/john-smith"])
	assert.False(t, seen["https://www.linkedin.com/in/never-contacted"])
}

func TestSQLite_CommitIdempotent(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Commit(ctx, []model.LedgerEntry{entry("k1")}))
	// Recommitting the same key must not error or duplicate.
	require.NoError(t, l.Commit(ctx, []model.LedgerEntry{entry("k1")}))

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
}

func TestSQLite_CommitEmptyIsNoop(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Commit(context.Background(), nil))
}

func TestSQLite_CommitOnlyConfirmed(t *testing.T) {
	// 75 candidates validated, 73 confirmed by the upload: the ledger must
	// hold exactly the 73 confirmed keys.
	l := newTestLedger(t)
	ctx := context.Background()

	var confirmed []model.LedgerEntry
	var all []string
	for i := 0; i < 75; i++ {
		key := model.CanonicalProfileURL("https://www.linkedin.com/in/lead-" + string(rune('a'+i%26)) + string(rune('0'+i/26)))
		all = append(all, key)
		if i < 73 {
			confirmed = append(confirmed, entry(key))
		}
	}

	require.NoError(t, l.Commit(ctx, confirmed))

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(73), stats.Total)

	seen, err := l.SeenKeys(ctx, all)
	require.NoError(t, err)
	assert.Len(t, seen, 73)
	assert.False(t, seen[all[73]])
	assert.False(t, seen[all[74]])
}

func TestSQLite_SeenKeysLargeBatch(t *testing.T) {
	// Exercise the IN-clause chunking path.
	l := newTestLedger(t)
	ctx := context.Background()

	var entries []model.LedgerEntry
	var keys []string
	for i := 0; i < 1200; i++ {
		key := model.CanonicalProfileURL("https://example.com/in/p" + strconv.Itoa(i))
		keys = append(keys, key)
		if i%2 == 0 {
			entries = append(entries, entry(key))
		}
	}
	require.NoError(t, l.Commit(ctx, entries))

	seen, err := l.SeenKeys(ctx, keys)
	require.NoError(t, err)
	assert.Len(t, seen, 600)
}

func TestSQLite_Stats(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	e1 := entry("k1")
	e2 := entry("k2")
	e3 := entry("k3")
	e3.Source = "manual"
	require.NoError(t, l.Commit(ctx, []model.LedgerEntry{e1, e2, e3}))

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.BySource["competitor-post"])
	assert.Equal(t, int64(1), stats.BySource["manual"])
}
