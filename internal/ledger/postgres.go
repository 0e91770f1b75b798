package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// pgPool is the subset of pgxpool.Pool the ledger uses. Tests substitute a
// pgxmock pool through this interface.
type pgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// PostgresLedger implements Ledger using pgxpool.
type PostgresLedger struct {
	pool    pgPool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"seen_keys":    `SELECT key FROM contacted WHERE key = ANY($1)`,
	"insert_entry": `INSERT INTO contacted (key, list_id, source, committed_at) VALUES ($1, $2, $3, $4) ON CONFLICT (key) DO NOTHING`,
}

// NewPostgres creates a PostgresLedger with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresLedger, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: parse postgres config")
	}

	pgxCfg.MaxConns = 5
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "ledger: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ledger: ping")
	}
	return &PostgresLedger{pool: pool, closeFn: pool.Close}, nil
}

// newPostgresWithPool wires an existing pool, used by tests.
func newPostgresWithPool(pool pgPool) *PostgresLedger {
	return &PostgresLedger{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS contacted (
	key          TEXT PRIMARY KEY,
	list_id      INTEGER NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	committed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_contacted_source ON contacted(source);
CREATE INDEX IF NOT EXISTS idx_contacted_committed_at ON contacted(committed_at);
`

func (l *PostgresLedger) Migrate(ctx context.Context) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "ledger: begin migrate")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "ledger: migrate postgres")
	}
	return eris.Wrap(tx.Commit(ctx), "ledger: commit migration")
}

func (l *PostgresLedger) Close() error {
	l.closeFn()
	return nil
}

func (l *PostgresLedger) SeenKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	seen := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return seen, nil
	}

	rows, err := l.pool.Query(ctx,
		`SELECT key FROM contacted WHERE key = ANY($1)`, keys)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: seen keys")
	}
	defer rows.Close()

	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrap(err, "ledger: scan key")
		}
		seen[k] = true
	}
	return seen, eris.Wrap(rows.Err(), "ledger: iterate keys")
}

func (l *PostgresLedger) Commit(ctx context.Context, entries []model.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "ledger: begin commit")
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO contacted (key, list_id, source, committed_at) VALUES ($1, $2, $3, $4) ON CONFLICT (key) DO NOTHING`,
			e.Key, e.ListID, e.Source, e.CommittedAt.UTC(),
		); err != nil {
			return eris.Wrapf(err, "ledger: insert %s", e.Key)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "ledger: commit")
}

func (l *PostgresLedger) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{BySource: map[string]int64{}}

	if err := l.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contacted`).Scan(&stats.Total); err != nil {
		return stats, eris.Wrap(err, "ledger: count")
	}

	rows, err := l.pool.Query(ctx,
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
