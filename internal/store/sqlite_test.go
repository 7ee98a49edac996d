package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorline-group/pricing-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedVehicle(t *testing.T, st *SQLiteStore, v model.Vehicle) {
	t.Helper()
	_, err := st.db.Exec(
		`INSERT INTO stock_vehicles (id, license_plate, model_name, version_text, registration_date,
		 first_published, odometer_text, price_text, new_price_text, url, available)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.LicensePlate, v.ModelName, v.VersionText, v.RegistrationDate,
		v.FirstPublished, v.OdometerText, v.PriceText, v.NewPriceText, v.URL, v.Available,
	)
	require.NoError(t, err)
}

func TestSQLite_GetVehicle(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedVehicle(t, st, model.Vehicle{
		ID: "v1", ModelName: "iX1", VersionText: "xDrive30",
		PriceText: "45.000 €", Available: true,
	})

	v, err := st.GetVehicle(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "iX1", v.ModelName)
	assert.True(t, v.Available)
}

func TestSQLite_GetVehicle_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetVehicle(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListVehicles_OnlyAvailable(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedVehicle(t, st, model.Vehicle{ID: "v1", ModelName: "iX1", Available: true})
	seedVehicle(t, st, model.Vehicle{ID: "v2", ModelName: "X3", Available: false})

	vehicles, err := st.ListVehicles(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "v1", vehicles[0].ID)
}

func TestSQLite_ImportAndListLiveListings(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	year := 2022
	n, err := st.ImportListings(ctx, []model.Listing{
		{Source: "BPS", AdID: "a1", ModelText: "BMW iX1", Year: &year, PriceText: "44.000 €", Status: model.StatusActive},
		{Source: "BPS", AdID: "a2", ModelText: "BMW iX2", Status: model.StatusSold},
		{Source: "MN", AdID: "a3", ModelText: "MINI Cooper", Status: model.StatusPriceDown},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	live, err := st.ListLiveListings(ctx)
	require.NoError(t, err)
	require.Len(t, live, 2)
	for _, l := range live {
		assert.True(t, l.Status.Live())
	}
}

func TestSQLite_ImportListings_UpsertsOnReimport(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.ImportListings(ctx, []model.Listing{
		{Source: "BPS", AdID: "a1", PriceText: "44.000 €", Status: model.StatusActive},
	})
	require.NoError(t, err)

	_, err = st.ImportListings(ctx, []model.Listing{
		{Source: "BPS", AdID: "a1", PriceText: "42.000 €", Status: model.StatusPriceDown},
	})
	require.NoError(t, err)

	live, err := st.ListLiveListings(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "42.000 €", live[0].PriceText)
	assert.Equal(t, model.StatusPriceDown, live[0].Status)
}

func TestSQLite_ListPriceChanges(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i, c := range []struct {
		id   string
		adID string
		when time.Time
	}{
		{"pc1", "a1", time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{"pc2", "a1", time.Date(2023, time.May, 20, 0, 0, 0, 0, time.UTC)},
		{"pc3", "zz", time.Date(2023, time.May, 10, 0, 0, 0, 0, time.UTC)},
	} {
		_, err := st.db.Exec(
			`INSERT INTO listing_price_changes (id, ad_id, source, old_price, new_price, changed_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.id, c.adID, "BPS", 45000.0+float64(i), 44000.0, c.when,
		)
		require.NoError(t, err)
	}

	changes, err := st.ListPriceChanges(ctx, []string{"a1"}, 10)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	// Newest first.
	assert.Equal(t, "pc2", changes[0].ID)
	assert.Equal(t, "pc1", changes[1].ID)

	changes, err = st.ListPriceChanges(ctx, []string{"a1"}, 1)
	require.NoError(t, err)
	assert.Len(t, changes, 1)

	changes, err = st.ListPriceChanges(ctx, nil, 10)
	require.NoError(t, err)
	assert.Nil(t, changes)
}
