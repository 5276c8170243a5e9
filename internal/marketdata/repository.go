package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sectorfolio/internal/contracts"
)

// DefaultBatchSize bounds the number of rows sent per pgx batch
const DefaultBatchSize = 1000

// Schema creates the market data tables
const Schema = `
CREATE TABLE IF NOT EXISTS historical_prices (
	ticker TEXT             NOT NULL,
	date   DATE             NOT NULL,
	close  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (ticker, date)
);

CREATE INDEX IF NOT EXISTS idx_historical_prices_date ON historical_prices (date);

CREATE TABLE IF NOT EXISTS sector_data (
	ticker     TEXT PRIMARY KEY,
	sector     TEXT             NOT NULL,
	price      DOUBLE PRECISION NOT NULL,
	beta       DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	lot_size   INTEGER          NOT NULL DEFAULT 1,
	updated_at TIMESTAMPTZ      NOT NULL DEFAULT NOW()
);
`

// SectorDatum is one row of sector_data: the latest known metadata of an asset
type SectorDatum struct {
	Ticker    string    `json:"ticker"`
	Sector    string    `json:"sector"`
	Price     float64   `json:"price"`
	Beta      float64   `json:"beta"`
	LotSize   int       `json:"lot_size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository stores daily closes and sector metadata
// ⭐ SSOT: historical_prices and sector_data are accessed only here
type Repository struct {
	pool      *pgxpool.Pool
	batchSize int
}

// NewRepository creates a new market data repository
func NewRepository(pool *pgxpool.Pool, batchSize int) *Repository {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Repository{pool: pool, batchSize: batchSize}
}

// SavePrices upserts daily closes in batches; an existing (ticker, date) is overwritten
func (r *Repository) SavePrices(ctx context.Context, points []contracts.PricePoint) (int, error) {
	query := `
		INSERT INTO historical_prices (ticker, date, close)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker, date) DO UPDATE SET close = EXCLUDED.close
	`

	saved := 0
	for _, chunk := range chunks(points, r.batchSize) {
		batch := &pgx.Batch{}
		for _, p := range chunk {
			batch.Queue(query, p.Ticker, day(p.Date), p.Close)
		}

		results := r.pool.SendBatch(ctx, batch)
		for range chunk {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return saved, fmt.Errorf("failed to upsert prices: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return saved, fmt.Errorf("failed to close batch: %w", err)
		}
		saved += len(chunk)
	}
	return saved, nil
}

// LoadPrices returns closes of the given tickers on or after from, ordered by date
func (r *Repository) LoadPrices(ctx context.Context, tickers []string, from time.Time) ([]contracts.PricePoint, error) {
	query := `
		SELECT ticker, date, close
		FROM historical_prices
		WHERE ticker = ANY($1) AND date >= $2
		ORDER BY date, ticker
	`

	rows, err := r.pool.Query(ctx, query, tickers, day(from))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	points := make([]contracts.PricePoint, 0)
	for rows.Next() {
		var p contracts.PricePoint
		if err := rows.Scan(&p.Ticker, &p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return points, nil
}

// LatestDates returns the most recent stored date per ticker; tickers without
// history are absent from the map
func (r *Repository) LatestDates(ctx context.Context, tickers []string) (map[string]time.Time, error) {
	query := `
		SELECT ticker, MAX(date)
		FROM historical_prices
		WHERE ticker = ANY($1)
		GROUP BY ticker
	`

	rows, err := r.pool.Query(ctx, query, tickers)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest dates: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]time.Time, len(tickers))
	for rows.Next() {
		var (
			ticker string
			date   time.Time
		)
		if err := rows.Scan(&ticker, &date); err != nil {
			return nil, fmt.Errorf("failed to scan latest date: %w", err)
		}
		latest[ticker] = date
	}
	return latest, rows.Err()
}

// UpsertSectorData writes the latest metadata of each asset
func (r *Repository) UpsertSectorData(ctx context.Context, data []SectorDatum) error {
	if len(data) == 0 {
		return nil
	}

	query := `
		INSERT INTO sector_data (ticker, sector, price, beta, lot_size, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (ticker) DO UPDATE SET
			sector = EXCLUDED.sector,
			price = EXCLUDED.price,
			beta = EXCLUDED.beta,
			lot_size = EXCLUDED.lot_size,
			updated_at = EXCLUDED.updated_at
	`

	batch := &pgx.Batch{}
	for _, s := range data {
		batch.Queue(query, s.Ticker, s.Sector, s.Price, s.Beta, s.LotSize)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, s := range data {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert sector data %s: %w", s.Ticker, err)
		}
	}
	return nil
}

// LoadSectorData returns stored metadata for the given tickers
func (r *Repository) LoadSectorData(ctx context.Context, tickers []string) (map[string]SectorDatum, error) {
	query := `
		SELECT ticker, sector, price, beta, lot_size, updated_at
		FROM sector_data
		WHERE ticker = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, tickers)
	if err != nil {
		return nil, fmt.Errorf("failed to query sector data: %w", err)
	}
	defer rows.Close()

	data := make(map[string]SectorDatum, len(tickers))
	for rows.Next() {
		var s SectorDatum
		if err := rows.Scan(&s.Ticker, &s.Sector, &s.Price, &s.Beta, &s.LotSize, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sector data: %w", err)
		}
		data[s.Ticker] = s
	}
	return data, rows.Err()
}

// EnsureSchema creates the market data tables and any extra schemas given
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, extra ...string) error {
	for _, ddl := range append([]string{Schema}, extra...) {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func chunks[T any](items []T, size int) [][]T {
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
