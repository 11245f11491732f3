package postgres

import (
	"context"
	"fmt"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/repository"
)

type productRow struct {
	ID             int64    `db:"id"`
	SKU            string   `db:"sku"`
	Name           string   `db:"name"`
	Price          *float64 `db:"price"`
	Cost           *float64 `db:"cost"`
	Margin         *float64 `db:"margin"`
	AlertThreshold *float64 `db:"alert_threshold"`
}

type stockRow struct {
	ProductID int64   `db:"product_id"`
	Store     string  `db:"store"`
	Qty       float64 `db:"qty"`
}

// storeProductRow is a product joined with its stock row for one store.
// Store-level cost and margin are already coalesced onto the product values.
type storeProductRow struct {
	productRow
	Qty float64 `db:"qty"`
}

type stockRepository struct {
	db *DB
}

var _ repository.StockRepository = (*stockRepository)(nil)

func NewStockRepository(db *DB) repository.StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) ListProducts(ctx context.Context, storeID string) ([]domain.ProductSnapshot, error) {
	if storeID != "" {
		return r.listForStore(ctx, storeID)
	}

	var products []productRow
	if err := r.db.selectContext(ctx, &products, `
		SELECT id, sku, name, price, cost, margin, alert_threshold
		FROM products
		ORDER BY sku
	`); err != nil {
		return nil, fmt.Errorf("error listing products: %w", err)
	}

	var stocks []stockRow
	if err := r.db.selectContext(ctx, &stocks, `
		SELECT product_id, store, COALESCE(qty, 0) AS qty
		FROM stocks
	`); err != nil {
		return nil, fmt.Errorf("error listing stock levels: %w", err)
	}

	return buildSnapshots(products, stocks), nil
}

// listForStore only returns products that have a stock row for the store.
func (r *stockRepository) listForStore(ctx context.Context, storeID string) ([]domain.ProductSnapshot, error) {
	var rows []storeProductRow
	if err := r.db.selectContext(ctx, &rows, `
		SELECT
			p.id,
			p.sku,
			p.name,
			p.price,
			COALESCE(s.cost, p.cost) AS cost,
			COALESCE(s.margin, p.margin) AS margin,
			p.alert_threshold,
			COALESCE(s.qty, 0) AS qty
		FROM products p
		JOIN stocks s ON s.product_id = p.id AND s.store = $1
		ORDER BY p.sku
	`, storeID); err != nil {
		return nil, fmt.Errorf("error listing products for store %s: %w", storeID, err)
	}

	out := make([]domain.ProductSnapshot, 0, len(rows))
	for _, row := range rows {
		qty := row.Qty
		snap := row.snapshot()
		snap.Qty = &qty
		snap.StockByStore = map[string]float64{storeID: qty}
		out = append(out, snap)
	}
	return out, nil
}

func buildSnapshots(products []productRow, stocks []stockRow) []domain.ProductSnapshot {
	byProduct := make(map[int64]map[string]float64, len(products))
	for _, s := range stocks {
		m, ok := byProduct[s.ProductID]
		if !ok {
			m = make(map[string]float64)
			byProduct[s.ProductID] = m
		}
		m[s.Store] += s.Qty
	}

	out := make([]domain.ProductSnapshot, 0, len(products))
	for _, p := range products {
		snap := p.snapshot()
		snap.StockByStore = byProduct[p.ID]
		if snap.StockByStore == nil {
			zero := 0.0
			snap.Qty = &zero
		}
		out = append(out, snap)
	}
	return out
}

func (p productRow) snapshot() domain.ProductSnapshot {
	return domain.ProductSnapshot{
		SKU:            p.SKU,
		Name:           p.Name,
		Price:          resolvePrice(p.Price, p.Cost, p.Margin),
		Cost:           p.Cost,
		AlertThreshold: p.AlertThreshold,
	}
}

// resolvePrice derives the selling price from cost and margin percent when
// both are known, falling back to the list price.
func resolvePrice(price, cost, margin *float64) float64 {
	if cost != nil && margin != nil {
		return *cost * (1 + *margin/100)
	}
	if price != nil {
		return *price
	}
	return 0
}
