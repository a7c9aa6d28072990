package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/vetdocs/triage/internal/config"
)

// Open creates a Store from config. Supported drivers are "sqlite" and
// "postgres".
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
