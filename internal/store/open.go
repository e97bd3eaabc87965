package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// Open constructs a Store for the configured driver and runs migrations.
// Supported drivers: "sqlite" (default), "postgres", "memory".
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "deckforge.db"
		}
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, dsn, poolCfg)
	case "memory":
		s = NewMemory()
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
