// Package driver opens the configured store implementation.
package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/owid/owid-grapher-sub039/internal/config"
	"github.com/owid/owid-grapher-sub039/internal/store"
	"github.com/owid/owid-grapher-sub039/internal/store/boltstore"
	"github.com/owid/owid-grapher-sub039/internal/store/postgres"
)

// Open connects to the store named by cfg.StoreDriver. With migrate set, postgres
// schema migrations run before it returns.
func Open(ctx context.Context, cfg *config.Config, migrate bool, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		s, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if migrate {
			log.Info("running database migrations")
			if err := postgres.Migrate(s.DB()); err != nil {
				s.Close()
				return nil, fmt.Errorf("migration failed: %w", err)
			}
			log.Info("migrations completed")
		}
		return s, nil
	case config.StoreDriverBolt:
		s, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		log.Info("using bolt store", "path", cfg.BoltPath)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
