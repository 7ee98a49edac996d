package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorline-group/pricing-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func vehicleRows(mock pgxmock.PgxPoolIface) *pgxmock.Rows {
	return mock.NewRows([]string{
		"id", "license_plate", "model_name", "version_text", "registration_date",
		"first_published", "odometer_text", "price_text", "new_price_text", "url", "available",
	})
}

func listingRows(mock pgxmock.PgxPoolIface) *pgxmock.Rows {
	return mock.NewRows([]string{
		"id", "source", "ad_id", "model_text", "year", "odometer_text",
		"price_text", "previous_price_text", "new_price_text", "new_price_original",
		"dealer_name", "url", "days_published", "first_seen", "status",
		"price_drops", "total_dropped",
	})
}

func TestPostgresStore_GetVehicle(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM stock_vehicles WHERE id = \$1`).
		WithArgs("v1").
		WillReturnRows(vehicleRows(mock).AddRow(
			"v1", "1234ABC", "iX1", "xDrive30", "2022-03-01",
			"2023-04-01", "20.000 km", "45.000 €", "60.000 €", "https://example.com/v1", true,
		))

	v, err := s.GetVehicle(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "iX1", v.ModelName)
	assert.Equal(t, "45.000 €", v.PriceText)
	assert.True(t, v.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetVehicle_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM stock_vehicles WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetVehicle(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLiveListings_QuarantinesUnknownStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	year := 2022
	mock.ExpectQuery(`SELECT .+ FROM competitor_listings`).
		WillReturnRows(listingRows(mock).
			AddRow("l1", "BPS", "a1", "BMW iX1", &year, "20.000 km",
				"44.000 €", "", "60.000 €", nil,
				"Motor Munich", "", 10, nil, "activo", 0, 0.0).
			AddRow("l2", "BPS", "a2", "BMW iX1", &year, "25.000 km",
				"42.000 €", "", "", nil,
				"Proa", "", 5, nil, "estado_raro", 0, 0.0))

	listings, err := s.ListLiveListings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "l1", listings[0].ID)
	assert.Equal(t, model.StatusActive, listings[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPriceChanges(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	changedAt := time.Date(2023, time.May, 20, 0, 0, 0, 0, time.UTC)
	old := 45500.0
	newP := 44000.0
	mock.ExpectQuery(`SELECT .+ FROM listing_price_changes`).
		WithArgs([]string{"a1", "a2"}, 50).
		WillReturnRows(mock.NewRows([]string{"id", "ad_id", "source", "old_price", "new_price", "changed_at"}).
			AddRow("pc1", "a1", "BPS", &old, &newP, changedAt))

	changes, err := s.ListPriceChanges(context.Background(), []string{"a1", "a2"}, 50)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "a1", changes[0].AdID)
	require.NotNil(t, changes[0].OldPrice)
	assert.InDelta(t, 45500, *changes[0].OldPrice, 0.01)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPriceChanges_NoAds(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	changes, err := s.ListPriceChanges(context.Background(), nil, 50)
	require.NoError(t, err)
	assert.Nil(t, changes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ImportListings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_competitor_listings"}, listingImportColumns).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "competitor_listings" .+ ON CONFLICT`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.ImportListings(context.Background(), []model.Listing{
		{Source: "BPS", AdID: "a1", ModelText: "BMW iX1", Status: model.StatusActive},
		{Source: "BPS", AdID: "a2", ModelText: "BMW iX2", Status: model.StatusNew},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordPriceChanges(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"listing_price_changes"},
		[]string{"id", "ad_id", "source", "old_price", "new_price", "changed_at"}).
		WillReturnResult(1)

	old := 44000.0
	newP := 42000.0
	n, err := s.RecordPriceChanges(context.Background(), []model.PriceChange{
		{AdID: "a1", Source: "BPS", OldPrice: &old, NewPrice: &newP,
			ChangedAt: time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS stock_vehicles`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
