// Package ledger is the durable record of everyone already contacted,
// keyed by canonical profile URL. The pipeline reads it once per run to
// drop duplicates and appends to it once per run with the upload-confirmed
// leads.
package ledger

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

// Ledger is the contact ledger.
type Ledger interface {
	// SeenKeys returns which of the given canonical keys already have a
	// ledger entry. Called once, before the worker pool starts.
	SeenKeys(ctx context.Context, keys []string) (map[string]bool, error)

	// Commit atomically appends entries for upload-confirmed leads. Keys
	// already present are left untouched. Called once, at end of run.
	Commit(ctx context.Context, entries []model.LedgerEntry) error

	// Stats returns entry counts for operational inspection.
	Stats(ctx context.Context) (Stats, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Stats summarizes ledger contents.
type Stats struct {
	Total    int64            `json:"total"`
	BySource map[string]int64 `json:"by_source"`
}

// Open creates the ledger backend selected by cfg.
func Open(ctx context.Context, cfg config.LedgerConfig) (Ledger, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("ledger: unknown driver %q", cfg.Driver)
	}
}
