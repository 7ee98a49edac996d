// Package engine orchestrates a full competitive analysis: fetch, match,
// aggregate, assemble.
package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/motorline-group/pricing-cli/internal/market"
	"github.com/motorline-group/pricing-cli/internal/match"
	"github.com/motorline-group/pricing-cli/internal/model"
	"github.com/motorline-group/pricing-cli/internal/normalize"
	"github.com/motorline-group/pricing-cli/internal/parse"
	"github.com/motorline-group/pricing-cli/internal/report"
	"github.com/motorline-group/pricing-cli/internal/store"
)

// priceHistoryLimit caps the history rows attached to a single report.
const priceHistoryLimit = 50

// defaultFleetConcurrency bounds parallel per-vehicle analyses in a fleet
// run. The work is CPU-only once the pool is fetched, so a small limit is
// enough.
const defaultFleetConcurrency = 8

// Options configures an Engine. The zero value is not usable; call
// DefaultOptions and override from config.
type Options struct {
	Match            match.Options
	SelfDealers      market.SelfDealers
	StockAgeWarnDays int
	FleetConcurrency int
	Dealers          *normalize.DealerNormalizer

	// Now is the clock used for age and stock-day computations. Tests pin it.
	Now func() time.Time
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Match:            match.DefaultOptions(),
		SelfDealers:      market.SelfDealers{"quadis", "duc"},
		StockAgeWarnDays: 60,
		FleetConcurrency: defaultFleetConcurrency,
		Dealers:          normalize.NewDealerNormalizer(),
		Now:              time.Now,
	}
}

// Engine runs competitive analyses against a Store.
type Engine struct {
	store store.Store
	opts  Options
}

// New creates an Engine. Nil option fields are filled with defaults.
func New(st store.Store, opts Options) *Engine {
	if opts.Dealers == nil {
		opts.Dealers = normalize.NewDealerNormalizer()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FleetConcurrency <= 0 {
		opts.FleetConcurrency = defaultFleetConcurrency
	}
	return &Engine{store: st, opts: opts}
}

// MatchOptions returns the engine's configured matcher tolerances, the
// starting point for per-request overrides.
func (e *Engine) MatchOptions() match.Options {
	return e.opts.Match
}

// AnalyzeVehicle produces the comparison report for one stock vehicle
// using the configured matcher tolerances.
func (e *Engine) AnalyzeVehicle(ctx context.Context, id string) (*model.ComparisonReport, error) {
	return e.AnalyzeVehicleWith(ctx, id, e.opts.Match)
}

// AnalyzeVehicleWith is AnalyzeVehicle with the matcher tolerances
// overridden for this one analysis.
func (e *Engine) AnalyzeVehicleWith(ctx context.Context, id string, mo match.Options) (*model.ComparisonReport, error) {
	v, err := e.store.GetVehicle(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: analyze vehicle %s", id)
	}

	pool, err := e.store.ListLiveListings(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: analyze vehicle %s", id)
	}

	return e.analyze(ctx, *v, pool, mo)
}

// analyze runs the in-memory part of the pipeline against an already
// fetched competitor pool.
func (e *Engine) analyze(ctx context.Context, v model.Vehicle, pool []model.Listing, mo match.Options) (*model.ComparisonReport, error) {
	now := e.opts.Now()
	composed := normalize.ComposeModel(v.ModelName, v.VersionText)

	ref := match.Reference{
		ModelText: composed,
		Year:      parse.Year(v.RegistrationDate),
		PowerCV:   normalize.Power(v.VersionText),
	}
	matched := match.Competitors(ref, pool, mo)

	history, err := e.priceHistory(ctx, matched)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: vehicle %s", v.ID)
	}

	summary := market.Summarize(matched, e.opts.SelfDealers, now)

	zap.L().Debug("vehicle analyzed",
		zap.String("id", v.ID),
		zap.String("model", composed),
		zap.Int("matched", summary.MatchedTotal),
		zap.Int("counted", summary.MatchedCount))

	return report.Assemble(report.Params{
		Vehicle:          v,
		ModelText:        composed,
		Matched:          matched,
		Summary:          summary,
		History:          history,
		Dealers:          e.opts.Dealers,
		Now:              now,
		StockAgeWarnDays: e.opts.StockAgeWarnDays,
	}), nil
}

func (e *Engine) priceHistory(ctx context.Context, matched []model.Listing) ([]model.PriceChange, error) {
	if len(matched) == 0 {
		return nil, nil
	}
	adIDs := make([]string, 0, len(matched))
	for _, l := range matched {
		adIDs = append(adIDs, l.AdID)
	}
	return e.store.ListPriceChanges(ctx, adIDs, priceHistoryLimit)
}

// FleetFilter narrows a fleet analysis. Zero value means the whole stock.
type FleetFilter struct {
	// Model keeps only vehicles whose composed model contains the given
	// substring, case-insensitively.
	Model string
	// Position keeps only reports classified with the given position.
	Position model.Position
	// Source restricts the competitor pool to one scrape source.
	Source string
}

// FleetStats aggregates across the analyzed fleet.
type FleetStats struct {
	OverallPosition *model.Position `json:"posicionGeneral"`
	MeanOwnPrice    *float64        `json:"precioMedioNuestro"`
	MeanMarketPrice *float64        `json:"precioMedioCompetencia"`
	Opportunities   int             `json:"oportunidades"`
	TotalComparable int             `json:"totalComparables"`
}

// FleetReport is the response of a whole-stock analysis.
type FleetReport struct {
	Stats    FleetStats                `json:"estadisticas"`
	Vehicles []*model.ComparisonReport `json:"vehiculos"`
	Count    int                       `json:"total"`
}

// AnalyzeFleet analyzes every available stock vehicle against a single
// snapshot of the competitor pool, bounded by FleetConcurrency.
func (e *Engine) AnalyzeFleet(ctx context.Context, filter FleetFilter) (*FleetReport, error) {
	vehicles, err := e.store.ListVehicles(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "engine: analyze fleet")
	}

	pool, err := e.store.ListLiveListings(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "engine: analyze fleet")
	}

	if filter.Source != "" {
		kept := pool[:0]
		for _, l := range pool {
			if strings.EqualFold(l.Source, filter.Source) {
				kept = append(kept, l)
			}
		}
		pool = kept
	}

	if filter.Model != "" {
		needle := strings.ToLower(filter.Model)
		kept := vehicles[:0]
		for _, v := range vehicles {
			composed := normalize.ComposeModel(v.ModelName, v.VersionText)
			if strings.Contains(strings.ToLower(composed), needle) {
				kept = append(kept, v)
			}
		}
		vehicles = kept
	}

	reports := make([]*model.ComparisonReport, len(vehicles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.FleetConcurrency)
	for i, v := range vehicles {
		g.Go(func() error {
			r, err := e.analyze(gctx, v, pool, e.opts.Match)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "engine: analyze fleet")
	}

	if filter.Position != "" {
		kept := reports[:0]
		for _, r := range reports {
			if r.Position != nil && *r.Position == filter.Position {
				kept = append(kept, r)
			}
		}
		reports = kept
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return scoreDeltaOrZero(reports[i]) > scoreDeltaOrZero(reports[j])
	})

	return &FleetReport{
		Stats:    fleetStats(reports),
		Vehicles: reports,
		Count:    len(reports),
	}, nil
}

// scoreDeltaOrZero sorts unpriced vehicles into the middle of the list.
func scoreDeltaOrZero(r *model.ComparisonReport) float64 {
	if r.ScoreDelta == nil {
		return 0
	}
	return *r.ScoreDelta
}

func fleetStats(reports []*model.ComparisonReport) FleetStats {
	var stats FleetStats
	var ownPrices, marketPrices, deltas []float64
	for _, r := range reports {
		if r.Price != nil {
			ownPrices = append(ownPrices, *r.Price)
		}
		if r.MeanPrice != nil {
			marketPrices = append(marketPrices, *r.MeanPrice)
		}
		if r.MatchedCount > 0 {
			stats.TotalComparable++
		}
		if r.Position != nil && *r.Position == model.PositionHigh {
			stats.Opportunities++
		}
		if r.ScoreDelta != nil {
			deltas = append(deltas, *r.ScoreDelta)
		}
	}
	stats.MeanOwnPrice = meanOf(ownPrices)
	stats.MeanMarketPrice = meanOf(marketPrices)
	if m := meanOf(deltas); m != nil {
		pos := classifyFleet(*m)
		stats.OverallPosition = &pos
	}
	return stats
}

// classifyFleet applies the per-vehicle position thresholds to the fleet
// mean score delta.
func classifyFleet(meanDelta float64) model.Position {
	switch {
	case meanDelta <= -5:
		return model.PositionCompetitive
	case meanDelta >= 5:
		return model.PositionHigh
	default:
		return model.PositionFair
	}
}

func meanOf(vs []float64) *float64 {
	if len(vs) == 0 {
		return nil
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	m := sum / float64(len(vs))
	return &m
}
