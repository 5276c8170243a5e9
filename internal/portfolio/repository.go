package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/database"
)

// ErrPlanNotFound is returned when no plan exists for a run id
var ErrPlanNotFound = errors.New("purchase plan not found")

// Schema creates the purchase plan tables
const Schema = `
CREATE TABLE IF NOT EXISTS purchase_plans (
	run_id           UUID PRIMARY KEY,
	sectors          TEXT[]           NOT NULL,
	max_share        DOUBLE PRECISION NOT NULL,
	amount           DOUBLE PRECISION NOT NULL,
	risk_level       DOUBLE PRECISION NOT NULL,
	include_crypto   BOOLEAN          NOT NULL,
	exchange_rate    DOUBLE PRECISION NOT NULL,
	weights_source   TEXT             NOT NULL,
	total_allocated  DOUBLE PRECISION NOT NULL,
	remaining_budget DOUBLE PRECISION NOT NULL,
	created_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS purchase_plan_items (
	run_id         UUID             NOT NULL REFERENCES purchase_plans(run_id) ON DELETE CASCADE,
	position       INTEGER          NOT NULL,
	ticker         TEXT             NOT NULL,
	asset_type     TEXT             NOT NULL,
	target_weight  DOUBLE PRECISION NOT NULL,
	allocated_rub  DOUBLE PRECISION NOT NULL,
	cost_rub        DOUBLE PRECISION NOT NULL,
	lots            INTEGER,
	shares          INTEGER,
	price_per_share DOUBLE PRECISION,
	quantity        DOUBLE PRECISION,
	price_usd       DOUBLE PRECISION,
	cost_usd        DOUBLE PRECISION,
	forecast_price  DOUBLE PRECISION,
	current_price   DOUBLE PRECISION,
	PRIMARY KEY (run_id, position)
);
`

// Repository persists purchase plans
// ⭐ SSOT: purchase plan storage lives here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new plan repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StoredPlan is a persisted plan with the request it was built from
type StoredPlan struct {
	RunID     string                 `json:"run_id"`
	CreatedAt time.Time              `json:"created_at"`
	Request   contracts.PlanRequest  `json:"request"`
	Plan      contracts.PurchasePlan `json:"plan"`
}

// SavePlan writes the plan header and all items in one transaction
func (r *Repository) SavePlan(ctx context.Context, runID string, req contracts.PlanRequest, plan *contracts.PurchasePlan) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	sectors := req.Sectors
	if sectors == nil {
		sectors = []string{}
	}

	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO purchase_plans (
				run_id, sectors, max_share, amount, risk_level, include_crypto,
				exchange_rate, weights_source, total_allocated, remaining_budget
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			id, sectors, req.MaxShare, req.Amount, req.RiskLevel, req.IncludeCrypto,
			req.ExchangeRate, req.WeightsSource, plan.TotalAllocated, plan.RemainingBudget,
		)
		if err != nil {
			return fmt.Errorf("failed to insert plan: %w", err)
		}

		batch := &pgx.Batch{}
		for i, p := range plan.Purchases {
			queueItem(batch, id, i, p)
		}
		if batch.Len() == 0 {
			return nil
		}

		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to insert plan item %d: %w", i, err)
			}
		}
		return results.Close()
	})
}

const insertItem = `
	INSERT INTO purchase_plan_items (
		run_id, position, ticker, asset_type, target_weight, allocated_rub, cost_rub,
		lots, shares, price_per_share, quantity, price_usd, cost_usd, forecast_price, current_price
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

func queueItem(batch *pgx.Batch, id uuid.UUID, position int, p contracts.Purchase) {
	b := p.Base()
	switch v := p.(type) {
	case contracts.EquityPurchase:
		batch.Queue(insertItem, id, position, b.Ticker, contracts.KindEquity, b.TargetWeight, b.AllocatedRUB, b.CostRUB,
			v.Lots, v.Shares, v.PricePerShare, nil, nil, nil, nil, nil)
	case contracts.CryptoPurchase:
		batch.Queue(insertItem, id, position, b.Ticker, contracts.KindCrypto, b.TargetWeight, b.AllocatedRUB, b.CostRUB,
			nil, nil, nil, v.Quantity, v.PriceUSD, v.CostUSD, v.ForecastPrice, v.CurrentPrice)
	}
}

// GetPlan loads a stored plan by run id
func (r *Repository) GetPlan(ctx context.Context, runID string) (*StoredPlan, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	stored := &StoredPlan{RunID: id.String()}
	err = r.pool.QueryRow(ctx, `
		SELECT sectors, max_share, amount, risk_level, include_crypto, exchange_rate,
		       weights_source, total_allocated, remaining_budget, created_at
		FROM purchase_plans WHERE run_id = $1`, id,
	).Scan(
		&stored.Request.Sectors, &stored.Request.MaxShare, &stored.Request.Amount, &stored.Request.RiskLevel,
		&stored.Request.IncludeCrypto, &stored.Request.ExchangeRate, &stored.Request.WeightsSource,
		&stored.Plan.TotalAllocated, &stored.Plan.RemainingBudget, &stored.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query plan: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ticker, asset_type, target_weight, allocated_rub, cost_rub,
		       lots, shares, price_per_share, quantity, price_usd, cost_usd, forecast_price, current_price
		FROM purchase_plan_items WHERE run_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan items: %w", err)
	}
	defer rows.Close()

	stored.Plan.Purchases = make([]contracts.Purchase, 0)
	for rows.Next() {
		var (
			base                                  contracts.PurchaseBase
			kind                                  string
			lots, shares                          *int
			pricePerShare, qty, priceUSD, costUSD *float64
			forecastPrice, currentPrice           *float64
		)
		if err := rows.Scan(&base.Ticker, &kind, &base.TargetWeight, &base.AllocatedRUB, &base.CostRUB,
			&lots, &shares, &pricePerShare, &qty, &priceUSD, &costUSD, &forecastPrice, &currentPrice); err != nil {
			return nil, fmt.Errorf("failed to scan plan item: %w", err)
		}

		if contracts.AssetKind(kind) == contracts.KindCrypto {
			stored.Plan.Purchases = append(stored.Plan.Purchases, contracts.CryptoPurchase{
				PurchaseBase:  base,
				Quantity:      deref(qty),
				PriceUSD:      deref(priceUSD),
				CostUSD:       deref(costUSD),
				ForecastPrice: deref(forecastPrice),
				CurrentPrice:  deref(currentPrice),
			})
			continue
		}
		stored.Plan.Purchases = append(stored.Plan.Purchases, contracts.EquityPurchase{
			PurchaseBase:  base,
			Lots:          deref(lots),
			Shares:        deref(shares),
			PricePerShare: deref(pricePerShare),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return stored, nil
}

func deref[T int | float64](p *T) T {
	if p == nil {
		return 0
	}
	return *p
}

// PrunePlans deletes plans created before cutoff; items go with them via cascade
func (r *Repository) PrunePlans(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM purchase_plans WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune plans: %w", err)
	}
	return tag.RowsAffected(), nil
}
