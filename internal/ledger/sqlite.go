package ledger

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SQLiteLedger implements Ledger using modernc.org/sqlite.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLite opens a SQLite ledger at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "ledger: exec %s", pragma)
		}
	}
	return &SQLiteLedger{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contacted (
	key          TEXT PRIMARY KEY,
	list_id      INTEGER NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	committed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_contacted_source ON contacted(source);
CREATE INDEX IF NOT EXISTS idx_contacted_committed_at ON contacted(committed_at);
`

func (l *SQLiteLedger) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "ledger: migrate sqlite")
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// seenKeysChunk keeps the IN clause under SQLite's bound-parameter limit.
const seenKeysChunk = 500

func (l *SQLiteLedger) SeenKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	seen := make(map[string]bool, len(keys))
	for start := 0; start < len(keys); start += seenKeysChunk {
		end := min(start+seenKeysChunk, len(keys))
		chunk := keys[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}

		rows, err := l.db.QueryContext(ctx,
			`SELECT key FROM contacted WHERE key IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, eris.Wrap(err, "ledger: seen keys")
		}
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				rows.Close()
				return nil, eris.Wrap(err, "ledger: scan key")
			}
			seen[k] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "ledger: iterate keys")
		}
		rows.Close()
	}
	return seen, nil
}

func (l *SQLiteLedger) Commit(ctx context.Context, entries []model.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "ledger: begin commit")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO contacted (key, list_id, source, committed_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "ledger: prepare insert")
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Key, e.ListID, e.Source, e.CommittedAt.UTC()); err != nil {
			return eris.Wrapf(err, "ledger: insert %s", e.Key)
		}
	}

	return eris.Wrap(tx.Commit(), "ledger: commit")
}

func (l *SQLiteLedger) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{BySource: map[string]int64{}}

	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacted`).Scan(&stats.Total); err != nil {
		return stats, eris.Wrap(err, "ledger: count")
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT source, COUNT(*) FROM contacted GROUP BY source`)
	if err != nil {
		return stats, eris.Wrap(err, "ledger: count by source")
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var n int64
		if err := rows.Scan(&source, &n); err != nil {
			return stats, eris.Wrap(err, "ledger: scan source count")
		}
		stats.BySource[source] = n
	}
	return stats, eris.Wrap(rows.Err(), "ledger: iterate source counts")
}
