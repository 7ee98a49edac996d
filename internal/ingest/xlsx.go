// Package ingest loads competitor-listing exports into the store.
package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/motorline-group/pricing-cli/internal/model"
	"github.com/motorline-group/pricing-cli/internal/normalize"
	"github.com/motorline-group/pricing-cli/internal/parse"
)

// XLSXOptions configures the listing export parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex

	// Source is the fallback source system for rows without a "fuente"
	// column.
	Source string
}

// headerAliases maps canonical listing fields to the header spellings seen
// across the scraper exports. Headers are folded before lookup.
var headerAliases = map[string][]string{
	"source":             {"fuente", "source"},
	"ad_id":              {"id_anuncio", "id anuncio", "anuncio"},
	"model":              {"modelo", "model"},
	"year":               {"año", "ano", "year"},
	"km":                 {"km", "kilometros"},
	"price":              {"precio", "price"},
	"previous_price":     {"precio_anterior", "precio anterior"},
	"new_price":          {"precio_nuevo", "precio nuevo"},
	"new_price_original": {"precio_nuevo_original", "precio nuevo original"},
	"dealer":             {"concesionario", "dealer"},
	"url":                {"url", "enlace"},
	"days_published":     {"dias_publicado", "dias publicado", "dias"},
	"first_seen":         {"primera_deteccion", "primera deteccion"},
	"status":             {"estado_anuncio", "estado anuncio", "estado"},
	"price_drops":        {"numero_bajadas_precio", "numero bajadas"},
	"total_dropped":      {"importe_total_bajado", "importe bajado"},
}

// ReadListings parses an XLSX listing export. Rows with an unknown status
// are quarantined with a warning; rows without an ad id are skipped.
func ReadListings(path string, opts XLSXOptions) ([]model.Listing, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.New("ingest: empty sheet")
	}

	cols := mapHeader(rowToStrings(sheet.Rows[0]))
	if _, ok := cols["ad_id"]; !ok {
		return nil, eris.New("ingest: header row has no ad id column")
	}

	var listings []model.Listing
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		l, ok := parseRow(cells, cols, opts.Source, i+2)
		if ok {
			listings = append(listings, l)
		}
	}
	return listings, nil
}

func parseRow(cells []string, cols map[string]int, defaultSource string, rowNum int) (model.Listing, bool) {
	get := func(field string) string {
		idx, ok := cols[field]
		if !ok || idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}

	l := model.Listing{
		Source:            get("source"),
		AdID:              get("ad_id"),
		ModelText:         get("model"),
		OdometerText:      get("km"),
		PriceText:         get("price"),
		PreviousPriceText: get("previous_price"),
		NewPriceText:      get("new_price"),
		DealerName:        get("dealer"),
		URL:               get("url"),
	}
	if l.Source == "" {
		l.Source = defaultSource
	}
	if l.AdID == "" {
		return model.Listing{}, false
	}

	if y := get("year"); y != "" {
		l.Year = parse.Year(y)
	}
	if p := parse.Price(get("new_price_original")); p != nil {
		l.NewPriceOriginal = p
	}
	if d := get("days_published"); d != "" {
		if n, err := strconv.Atoi(d); err == nil {
			l.DaysPublished = n
		}
	}
	if fs := get("first_seen"); fs != "" {
		if t := parseTimestamp(fs); t != nil {
			l.FirstSeen = t
		}
	}
	if n := get("price_drops"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			l.PriceDrops = v
		}
	}
	if td := parse.Price(get("total_dropped")); td != nil {
		l.TotalDropped = *td
	}

	raw := get("status")
	if raw == "" {
		l.Status = model.StatusActive
		return l, true
	}
	st, ok := model.ParseListingStatus(strings.ToLower(raw))
	if !ok {
		zap.L().Warn("quarantined listing row with unknown status",
			zap.Int("row", rowNum),
			zap.String("ad_id", l.AdID),
			zap.String("status", raw))
		return model.Listing{}, false
	}
	l.Status = st
	return l, true
}

func parseTimestamp(s string) *time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	if t := parse.Date(s); t != nil {
		return t
	}
	return nil
}

func mapHeader(header []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range header {
		folded := normalize.Fold(strings.TrimSpace(h))
		for field, aliases := range headerAliases {
			for _, alias := range aliases {
				if folded == normalize.Fold(alias) {
					cols[field] = i
				}
			}
		}
	}
	return cols
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
