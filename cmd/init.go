package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/terralytics/carbon-cli/internal/pipeline"
	"github.com/terralytics/carbon-cli/internal/store"
	"github.com/terralytics/carbon-cli/pkg/lulcsvc"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "carbon.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initClient() lulcsvc.Client {
	return lulcsvc.New(cfg.Service.BaseURL,
		lulcsvc.WithTimeout(time.Duration(cfg.Service.TimeoutSecs)*time.Second),
		lulcsvc.WithRateLimit(cfg.Service.RatePerSec),
	)
}

// initPipeline wires the store and the classification client into a pipeline.
// The returned store is owned by the caller.
func initPipeline(ctx context.Context) (*pipeline.Pipeline, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, eris.Wrap(err, "migrate store")
	}
	return pipeline.New(initClient(), st), st, nil
}
