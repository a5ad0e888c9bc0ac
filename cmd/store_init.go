package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aurora-qa/internal/config"
	"github.com/sells-group/aurora-qa/internal/store"
)

// initStore opens and migrates the configured fetch-run store. It returns a
// nil store for the "none" driver.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverSQLite:
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "aurora-qa.db"
		}
		st, err = store.NewSQLite(dsn)
	case config.DriverPostgres:
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
