package repository

import (
	"context"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
)

// StockRepository supplies the current stock snapshot. An empty storeID
// returns products with stock aggregated across every store.
type StockRepository interface {
	ListProducts(ctx context.Context, storeID string) ([]domain.ProductSnapshot, error)
}

// SalesRepository supplies recorded sales, optionally restricted to one store.
type SalesRepository interface {
	ListSales(ctx context.Context, storeID string) ([]domain.SalesEvent, error)
}
