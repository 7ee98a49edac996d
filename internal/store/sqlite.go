package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/motorline-group/pricing-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It serves local
// development and single-analyst installs; production runs Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS stock_vehicles (
	id                TEXT PRIMARY KEY,
	license_plate     TEXT NOT NULL DEFAULT '',
	model_name        TEXT NOT NULL,
	version_text      TEXT NOT NULL DEFAULT '',
	registration_date TEXT NOT NULL DEFAULT '',
	first_published   TEXT NOT NULL DEFAULT '',
	odometer_text     TEXT NOT NULL DEFAULT '',
	price_text        TEXT NOT NULL DEFAULT '',
	new_price_text    TEXT NOT NULL DEFAULT '',
	url               TEXT NOT NULL DEFAULT '',
	available         INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS competitor_listings (
	id                  TEXT PRIMARY KEY,
	source              TEXT NOT NULL,
	ad_id               TEXT NOT NULL,
	model_text          TEXT NOT NULL DEFAULT '',
	year                INTEGER,
	odometer_text       TEXT NOT NULL DEFAULT '',
	price_text          TEXT NOT NULL DEFAULT '',
	previous_price_text TEXT NOT NULL DEFAULT '',
	new_price_text      TEXT NOT NULL DEFAULT '',
	new_price_original  REAL,
	dealer_name         TEXT NOT NULL DEFAULT '',
	url                 TEXT NOT NULL DEFAULT '',
	days_published      INTEGER NOT NULL DEFAULT 0,
	first_seen          DATETIME,
	status              TEXT NOT NULL DEFAULT 'activo',
	price_drops         INTEGER NOT NULL DEFAULT 0,
	total_dropped       REAL NOT NULL DEFAULT 0,
	UNIQUE (source, ad_id)
);

CREATE TABLE IF NOT EXISTS listing_price_changes (
	id         TEXT PRIMARY KEY,
	ad_id      TEXT NOT NULL,
	source     TEXT NOT NULL,
	old_price  REAL,
	new_price  REAL,
	changed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_stock_vehicles_available ON stock_vehicles(available);
CREATE INDEX IF NOT EXISTS idx_competitor_listings_status ON competitor_listings(status);
CREATE INDEX IF NOT EXISTS idx_price_changes_ad_id ON listing_price_changes(ad_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM stock_vehicles WHERE id = ?`,
		id,
	)
	var v model.Vehicle
	err := row.Scan(&v.ID, &v.LicensePlate, &v.ModelName, &v.VersionText, &v.RegistrationDate,
		&v.FirstPublished, &v.OdometerText, &v.PriceText, &v.NewPriceText, &v.URL, &v.Available)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: vehicle %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get vehicle %s", id)
	}
	return &v, nil
}

func (s *SQLiteStore) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+vehicleColumns+` FROM stock_vehicles WHERE available = 1 ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list vehicles")
	}
	defer rows.Close()

	var vehicles []model.Vehicle
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(&v.ID, &v.LicensePlate, &v.ModelName, &v.VersionText, &v.RegistrationDate,
			&v.FirstPublished, &v.OdometerText, &v.PriceText, &v.NewPriceText, &v.URL, &v.Available); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan vehicle")
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, eris.Wrap(rows.Err(), "sqlite: list vehicles iterate")
}

func (s *SQLiteStore) ListLiveListings(ctx context.Context) ([]model.Listing, error) {
	statuses := model.LiveStatuses()
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "?"
		args[i] = string(st)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM competitor_listings
		 WHERE status IN (`+strings.Join(placeholders, ", ")+`)
		 ORDER BY id`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list live listings")
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		var status string
		if err := rows.Scan(&l.ID, &l.Source, &l.AdID, &l.ModelText, &l.Year, &l.OdometerText,
			&l.PriceText, &l.PreviousPriceText, &l.NewPriceText, &l.NewPriceOriginal,
			&l.DealerName, &l.URL, &l.DaysPublished, &l.FirstSeen, &status,
			&l.PriceDrops, &l.TotalDropped); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing")
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
	return listings, eris.Wrap(rows.Err(), "sqlite: listings iterate")
}

func (s *SQLiteStore) ListPriceChanges(ctx context.Context, adIDs []string, limit int) ([]model.PriceChange, error) {
	if len(adIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	placeholders := make([]string, len(adIDs))
	args := make([]any, 0, len(adIDs)+1)
	for i, id := range adIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ad_id, source, old_price, new_price, changed_at
		 FROM listing_price_changes
		 WHERE ad_id IN (`+strings.Join(placeholders, ", ")+`)
		 ORDER BY changed_at DESC LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list price changes")
	}
	defer rows.Close()

	var changes []model.PriceChange
	for rows.Next() {
		var c model.PriceChange
		if err := rows.Scan(&c.ID, &c.AdID, &c.Source, &c.OldPrice, &c.NewPrice, &c.ChangedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan price change")
		}
		changes = append(changes, c)
	}
	return changes, eris.Wrap(rows.Err(), "sqlite: price changes iterate")
}

func (s *SQLiteStore) ImportListings(ctx context.Context, listings []model.Listing) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO competitor_listings
		 (id, source, ad_id, model_text, year, odometer_text, price_text, previous_price_text,
		  new_price_text, new_price_original, dealer_name, url, days_published, first_seen,
		  status, price_drops, total_dropped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source, ad_id) DO UPDATE SET
		   model_text = excluded.model_text, year = excluded.year,
		   odometer_text = excluded.odometer_text, price_text = excluded.price_text,
		   previous_price_text = excluded.previous_price_text,
		   new_price_text = excluded.new_price_text,
		   new_price_original = excluded.new_price_original,
		   dealer_name = excluded.dealer_name, url = excluded.url,
		   days_published = excluded.days_published, first_seen = excluded.first_seen,
		   status = excluded.status, price_drops = excluded.price_drops,
		   total_dropped = excluded.total_dropped`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import: prepare")
	}
	defer stmt.Close()

	count := 0
	for _, l := range listings {
		id := l.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx,
			id, l.Source, l.AdID, l.ModelText, l.Year, l.OdometerText,
			l.PriceText, l.PreviousPriceText, l.NewPriceText, l.NewPriceOriginal,
			l.DealerName, l.URL, l.DaysPublished, l.FirstSeen, string(l.Status),
			l.PriceDrops, l.TotalDropped,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import listing %s", l.SourceID())
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import: commit tx")
	}
	return count, nil
}

func (s *SQLiteStore) RecordPriceChanges(ctx context.Context, changes []model.PriceChange) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: record changes: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO listing_price_changes (id, ad_id, source, old_price, new_price, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: record changes: prepare")
	}
	defer stmt.Close()

	for _, c := range changes {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, id, c.AdID, c.Source, c.OldPrice, c.NewPrice, c.ChangedAt); err != nil {
			return 0, eris.Wrapf(err, "sqlite: record change for %s", c.AdID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: record changes: commit tx")
	}
	return len(changes), nil
}
