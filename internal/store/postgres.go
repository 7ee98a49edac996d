package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/motorline-group/pricing-cli/internal/db"
	"github.com/motorline-group/pricing-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// listingsPageSize bounds each page of the live-listings scan. The scraped
// pool runs to tens of thousands of rows; paging keeps single-query memory
// and lock time flat.
const listingsPageSize = 1000

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_vehicle": `SELECT id, license_plate, model_name, version_text, registration_date, first_published, odometer_text, price_text, new_price_text, url, available FROM stock_vehicles WHERE id = $1`,
	"list_price_changes": `SELECT id, ad_id, source, old_price, new_price, changed_at FROM listing_price_changes WHERE ad_id = ANY($1) ORDER BY changed_at DESC LIMIT $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests inject pgxmock here.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS stock_vehicles (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	license_plate     TEXT NOT NULL DEFAULT '',
	model_name        TEXT NOT NULL,
	version_text      TEXT NOT NULL DEFAULT '',
	registration_date TEXT NOT NULL DEFAULT '',
	first_published   TEXT NOT NULL DEFAULT '',
	odometer_text     TEXT NOT NULL DEFAULT '',
	price_text        TEXT NOT NULL DEFAULT '',
	new_price_text    TEXT NOT NULL DEFAULT '',
	url               TEXT NOT NULL DEFAULT '',
	available         BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS competitor_listings (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source              TEXT NOT NULL,
	ad_id               TEXT NOT NULL,
	model_text          TEXT NOT NULL DEFAULT '',
	year                INTEGER,
	odometer_text       TEXT NOT NULL DEFAULT '',
	price_text          TEXT NOT NULL DEFAULT '',
	previous_price_text TEXT NOT NULL DEFAULT '',
	new_price_text      TEXT NOT NULL DEFAULT '',
	new_price_original  DOUBLE PRECISION,
	dealer_name         TEXT NOT NULL DEFAULT '',
	url                 TEXT NOT NULL DEFAULT '',
	days_published      INTEGER NOT NULL DEFAULT 0,
	first_seen          TIMESTAMPTZ,
	status              TEXT NOT NULL DEFAULT 'activo',
	price_drops         INTEGER NOT NULL DEFAULT 0,
	total_dropped       DOUBLE PRECISION NOT NULL DEFAULT 0,
	UNIQUE (source, ad_id)
);

CREATE TABLE IF NOT EXISTS listing_price_changes (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	ad_id      TEXT NOT NULL,
	source     TEXT NOT NULL,
	old_price  DOUBLE PRECISION,
	new_price  DOUBLE PRECISION,
	changed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_stock_vehicles_available ON stock_vehicles(available);
CREATE INDEX IF NOT EXISTS idx_competitor_listings_status ON competitor_listings(status);
CREATE INDEX IF NOT EXISTS idx_price_changes_ad_id ON listing_price_changes(ad_id);
CREATE INDEX IF NOT EXISTS idx_price_changes_changed_at ON listing_price_changes(changed_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const vehicleColumns = `id, license_plate, model_name, version_text, registration_date, first_published, odometer_text, price_text, new_price_text, url, available`

func (s *PostgresStore) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	var v model.Vehicle
	err := s.pool.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM stock_vehicles WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.LicensePlate, &v.ModelName, &v.VersionText, &v.RegistrationDate,
		&v.FirstPublished, &v.OdometerText, &v.PriceText, &v.NewPriceText, &v.URL, &v.Available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: vehicle %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get vehicle %s", id)
	}
	return &v, nil
}

func (s *PostgresStore) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+vehicleColumns+` FROM stock_vehicles WHERE available ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list vehicles")
	}
	defer rows.Close()

	var vehicles []model.Vehicle
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(&v.ID, &v.LicensePlate, &v.ModelName, &v.VersionText, &v.RegistrationDate,
			&v.FirstPublished, &v.OdometerText, &v.PriceText, &v.NewPriceText, &v.URL, &v.Available); err != nil {
			return nil, eris.Wrap(err, "postgres: scan vehicle")
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, eris.Wrap(rows.Err(), "postgres: list vehicles iterate")
}

const listingColumns = `id, source, ad_id, model_text, year, odometer_text, price_text, previous_price_text, new_price_text, new_price_original, dealer_name, url, days_published, first_seen, status, price_drops, total_dropped`

// ListLiveListings scans the published competitor pool in keyset-paged
// batches. Rows carrying a status outside the known set are quarantined:
// logged and skipped, never silently matched.
func (s *PostgresStore) ListLiveListings(ctx context.Context) ([]model.Listing, error) {
	statuses := make([]string, 0, 4)
	for _, st := range model.LiveStatuses() {
		statuses = append(statuses, string(st))
	}

	var listings []model.Listing
	lastID := ""
	for {
		rows, err := s.pool.Query(ctx,
			`SELECT `+listingColumns+` FROM competitor_listings
			 WHERE status = ANY($1) AND id > $2
			 ORDER BY id LIMIT $3`,
			statuses, lastID, listingsPageSize,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list live listings")
		}

		page, err := scanListings(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, page...)

		if len(page) < listingsPageSize {
			return listings, nil
		}
		lastID = page[len(page)-1].ID
	}
}

func scanListings(rows pgx.Rows) ([]model.Listing, error) {
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		var status string
		if err := rows.Scan(&l.ID, &l.Source, &l.AdID, &l.ModelText, &l.Year, &l.OdometerText,
			&l.PriceText, &l.PreviousPriceText, &l.NewPriceText, &l.NewPriceOriginal,
			&l.DealerName, &l.URL, &l.DaysPublished, &l.FirstSeen, &status,
			&l.PriceDrops, &l.TotalDropped); err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		st, ok := model.ParseListingStatus(status)
		if !ok {
			zap.L().Warn("quarantined listing with unknown status",
				zap.String("id", l.ID),
				zap.String("status", status))
			continue
		}
		l.Status = st
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "postgres: listings iterate")
}

func (s *PostgresStore) ListPriceChanges(ctx context.Context, adIDs []string, limit int) ([]model.PriceChange, error) {
	if len(adIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, ad_id, source, old_price, new_price, changed_at
		 FROM listing_price_changes
		 WHERE ad_id = ANY($1)
		 ORDER BY changed_at DESC LIMIT $2`,
		adIDs, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list price changes")
	}
	defer rows.Close()

	var changes []model.PriceChange
	for rows.Next() {
		var c model.PriceChange
		if err := rows.Scan(&c.ID, &c.AdID, &c.Source, &c.OldPrice, &c.NewPrice, &c.ChangedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan price change")
		}
		changes = append(changes, c)
	}
	return changes, eris.Wrap(rows.Err(), "postgres: price changes iterate")
}

var listingImportColumns = []string{
	"id", "source", "ad_id", "model_text", "year", "odometer_text",
	"price_text", "previous_price_text", "new_price_text", "new_price_original",
	"dealer_name", "url", "days_published", "first_seen", "status",
	"price_drops", "total_dropped",
}

// ImportListings bulk-upserts a scrape batch keyed on (source, ad_id).
// Re-imports of the same ads update in place.
func (s *PostgresStore) ImportListings(ctx context.Context, listings []model.Listing) (int, error) {
	rows := make([][]any, 0, len(listings))
	for _, l := range listings {
		id := l.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{
			id, l.Source, l.AdID, l.ModelText, l.Year, l.OdometerText,
			l.PriceText, l.PreviousPriceText, l.NewPriceText, l.NewPriceOriginal,
			l.DealerName, l.URL, l.DaysPublished, l.FirstSeen, string(l.Status),
			l.PriceDrops, l.TotalDropped,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "competitor_listings",
		Columns:      listingImportColumns,
		ConflictKeys: []string{"source", "ad_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import listings")
	}
	return int(n), nil
}

// RecordPriceChanges appends history rows via COPY.
func (s *PostgresStore) RecordPriceChanges(ctx context.Context, changes []model.PriceChange) (int, error) {
	rows := make([][]any, 0, len(changes))
	for _, c := range changes {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{id, c.AdID, c.Source, c.OldPrice, c.NewPrice, c.ChangedAt})
	}

	n, err := db.CopyFrom(ctx, s.pool, "listing_price_changes",
		[]string{"id", "ad_id", "source", "old_price", "new_price", "changed_at"}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: record price changes")
	}
	return int(n), nil
}
