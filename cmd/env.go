package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/motorline-group/pricing-cli/internal/engine"
	"github.com/motorline-group/pricing-cli/internal/market"
	"github.com/motorline-group/pricing-cli/internal/match"
	"github.com/motorline-group/pricing-cli/internal/normalize"
	"github.com/motorline-group/pricing-cli/internal/store"
)

// openStore builds the configured store backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres", "":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("database URL is required (PRICING_STORE_DATABASE_URL)")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	case "sqlite":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("sqlite path is required (PRICING_STORE_DATABASE_URL)")
		}
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// buildEngine wires an Engine from the loaded config.
func buildEngine(st store.Store) (*engine.Engine, error) {
	opts := engine.DefaultOptions()
	opts.Match = match.Options{
		YearTolerance:    cfg.Pricing.YearTolerance,
		PowerToleranceCV: cfg.Pricing.PowerToleranceCV,
	}
	opts.SelfDealers = market.SelfDealers(cfg.Pricing.SelfDealers)
	opts.StockAgeWarnDays = cfg.Pricing.StockAgeWarnDays
	opts.FleetConcurrency = cfg.Pricing.FleetConcurrency

	if path := cfg.Pricing.DealerRulesPath; path != "" {
		dealers, err := normalize.NewDealerNormalizerFromFile(path)
		if err != nil {
			return nil, eris.Wrap(err, "load dealer rules")
		}
		opts.Dealers = dealers
	}

	return engine.New(st, opts), nil
}
