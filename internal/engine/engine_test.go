package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorline-group/pricing-cli/internal/model"
	"github.com/motorline-group/pricing-cli/internal/store"
)

var now = time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)

type fakeStore struct {
	vehicles map[string]model.Vehicle
	listings []model.Listing
	changes  []model.PriceChange

	priceChangeCalls [][]string
}

func (f *fakeStore) GetVehicle(_ context.Context, id string) (*model.Vehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return nil, eris.Wrapf(store.ErrNotFound, "vehicle %s", id)
	}
	return &v, nil
}

func (f *fakeStore) ListVehicles(context.Context) ([]model.Vehicle, error) {
	var out []model.Vehicle
	for _, v := range f.vehicles {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeStore) ListLiveListings(context.Context) ([]model.Listing, error) {
	return f.listings, nil
}

func (f *fakeStore) ImportListings(context.Context, []model.Listing) (int, error) {
	return 0, nil
}

func (f *fakeStore) ListPriceChanges(_ context.Context, adIDs []string, _ int) ([]model.PriceChange, error) {
	f.priceChangeCalls = append(f.priceChangeCalls, adIDs)
	var out []model.PriceChange
	for _, c := range f.changes {
		for _, id := range adIDs {
			if c.AdID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) RecordPriceChanges(_ context.Context, changes []model.PriceChange) (int, error) {
	return len(changes), nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func intp(v int) *int { return &v }

func testEngine(f *fakeStore) *Engine {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return now }
	return New(f, opts)
}

func testVehicle() model.Vehicle {
	return model.Vehicle{
		ID:               "v1",
		ModelName:        "iX1",
		VersionText:      "xDrive30 230 kW (313 CV)",
		RegistrationDate: "2022-03-01",
		OdometerText:     "20.000 km",
		PriceText:        "45.000 €",
		NewPriceText:     "60.000 €",
		FirstPublished:   "2023-05-01",
	}
}

func competitorPool() []model.Listing {
	return []model.Listing{
		{
			ID: "l1", Source: "BPS", AdID: "a1",
			ModelText: "BMW iX1 xDrive30 (313 CV)", Year: intp(2022),
			PriceText: "44.000 €", NewPriceText: "60.000 €", OdometerText: "25.000 km",
			DealerName: "Motor Munich", Status: model.StatusActive,
		},
		{
			ID: "l2", Source: "MN", AdID: "a2",
			ModelText: "BMW iX1 xDrive30", Year: intp(2023),
			PriceText: "48.000 €", NewPriceText: "61.000 €", OdometerText: "12.000 km",
			DealerName: "Proa Premium", Status: model.StatusPriceDown,
		},
		{
			ID: "l3", Source: "BPS", AdID: "a3",
			ModelText: "BMW iX2 xDrive30", Year: intp(2022),
			PriceText: "47.000 €", DealerName: "Lurauto", Status: model.StatusActive,
		},
		{
			ID: "l4", Source: "BPS", AdID: "a4",
			ModelText: "BMW iX1 xDrive30", Year: intp(2022),
			PriceText: "39.000 €", DealerName: "QUADIS Sagitario", Status: model.StatusActive,
		},
	}
}

func TestAnalyzeVehicle(t *testing.T) {
	f := &fakeStore{
		vehicles: map[string]model.Vehicle{"v1": testVehicle()},
		listings: competitorPool(),
		changes: []model.PriceChange{
			{ID: "pc1", AdID: "a2", Source: "MN", ChangedAt: now.AddDate(0, 0, -3)},
			{ID: "pc2", AdID: "zz", Source: "MN", ChangedAt: now.AddDate(0, 0, -9)},
		},
	}

	r, err := testEngine(f).AnalyzeVehicle(context.Background(), "v1")
	require.NoError(t, err)

	assert.Equal(t, "v1", r.ID)
	assert.Equal(t, "iX1 xDrive30", r.Model)

	// l1, l2 and the self-dealer l4 match; the iX2 does not.
	assert.Equal(t, 3, r.MatchedTotal)
	assert.Equal(t, 2, r.MatchedCount)
	require.NotNil(t, r.MeanPrice)
	assert.InDelta(t, 46000, *r.MeanPrice, 0.01)

	require.NotNil(t, r.OwnScore)
	assert.InDelta(t, 7.14, *r.OwnScore, 0.01)

	// History is fetched only for matched ads.
	require.Len(t, f.priceChangeCalls, 1)
	assert.ElementsMatch(t, []string{"a1", "a2", "a4"}, f.priceChangeCalls[0])
	require.Len(t, r.PriceHistory, 1)
	assert.Equal(t, "pc1", r.PriceHistory[0].ID)

	// The self-dealer listing still shows up in the detail rows.
	assert.Len(t, r.Competitors, 3)
}

func TestAnalyzeVehicleWith_TightYearTolerance(t *testing.T) {
	f := &fakeStore{
		vehicles: map[string]model.Vehicle{"v1": testVehicle()},
		listings: competitorPool(),
	}
	eng := testEngine(f)

	mo := eng.MatchOptions()
	mo.YearTolerance = 0
	r, err := eng.AnalyzeVehicleWith(context.Background(), "v1", mo)
	require.NoError(t, err)

	// The 2023 listing falls outside a zero-year tolerance.
	assert.Equal(t, 2, r.MatchedTotal)
	assert.Equal(t, 1, r.MatchedCount)
}

func TestAnalyzeVehicle_NotFound(t *testing.T) {
	f := &fakeStore{vehicles: map[string]model.Vehicle{}}

	_, err := testEngine(f).AnalyzeVehicle(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, store.ErrNotFound))
}

func TestAnalyzeVehicle_NoCompetitors(t *testing.T) {
	f := &fakeStore{vehicles: map[string]model.Vehicle{"v1": testVehicle()}}

	r, err := testEngine(f).AnalyzeVehicle(context.Background(), "v1")
	require.NoError(t, err)

	assert.Equal(t, 0, r.MatchedTotal)
	assert.Nil(t, r.MeanPrice)
	assert.Empty(t, f.priceChangeCalls)
	// The depreciation model still scores our own vehicle.
	require.NotNil(t, r.OwnScore)
}

func TestAnalyzeFleet(t *testing.T) {
	mini := model.Vehicle{
		ID: "v2", ModelName: "MINI Countryman", VersionText: "Cooper SE ALL4 160 kW",
		RegistrationDate: "2023-01-10", OdometerText: "5.000 km",
		PriceText: "35.000 €", NewPriceText: "42.000 €",
	}
	f := &fakeStore{
		vehicles: map[string]model.Vehicle{"v1": testVehicle(), "v2": mini},
		listings: competitorPool(),
	}

	report, err := testEngine(f).AnalyzeFleet(context.Background(), FleetFilter{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Count)
	require.Len(t, report.Vehicles, 2)
	require.NotNil(t, report.Stats.MeanOwnPrice)
	assert.InDelta(t, 40000, *report.Stats.MeanOwnPrice, 0.01)
	assert.Equal(t, 1, report.Stats.TotalComparable)
	require.NotNil(t, report.Stats.OverallPosition)
}

func TestAnalyzeFleet_ModelFilter(t *testing.T) {
	mini := model.Vehicle{ID: "v2", ModelName: "MINI Countryman", PriceText: "35.000 €"}
	f := &fakeStore{
		vehicles: map[string]model.Vehicle{"v1": testVehicle(), "v2": mini},
	}

	report, err := testEngine(f).AnalyzeFleet(context.Background(), FleetFilter{Model: "ix1"})
	require.NoError(t, err)

	require.Equal(t, 1, report.Count)
	assert.Equal(t, "v1", report.Vehicles[0].ID)
}

func TestAnalyzeFleet_SourceFilter(t *testing.T) {
	f := &fakeStore{
		vehicles: map[string]model.Vehicle{"v1": testVehicle()},
		listings: competitorPool(),
	}

	report, err := testEngine(f).AnalyzeFleet(context.Background(), FleetFilter{Source: "MN"})
	require.NoError(t, err)

	require.Equal(t, 1, report.Count)
	assert.Equal(t, 1, report.Vehicles[0].MatchedTotal)
	assert.Equal(t, "l2", report.Vehicles[0].Competitors[0].ID)
}

func TestAnalyzeFleet_PositionFilter(t *testing.T) {
	f := &fakeStore{
		vehicles: map[string]model.Vehicle{"v1": testVehicle()},
		listings: competitorPool(),
	}

	report, err := testEngine(f).AnalyzeFleet(context.Background(), FleetFilter{Position: model.PositionCompetitive})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Count)
}
