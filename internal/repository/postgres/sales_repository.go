package postgres

import (
	"context"
	"fmt"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/repository"
)

type salesRepository struct {
	db *DB
}

var _ repository.SalesRepository = (*salesRepository)(nil)

func NewSalesRepository(db *DB) repository.SalesRepository {
	return &salesRepository{db: db}
}

func (r *salesRepository) ListSales(ctx context.Context, storeID string) ([]domain.SalesEvent, error) {
	query := `
		SELECT
			p.sku,
			COALESCE(s.qty, 0) AS qty,
			s.date,
			s.store,
			COALESCE(s.total, 0) AS total
		FROM sales s
		JOIN products p ON p.id = s.product_id
	`
	var args []interface{}
	if storeID != "" {
		query += " WHERE s.store = $1"
		args = append(args, storeID)
	}
	query += " ORDER BY s.date"

	var events []domain.SalesEvent
	if err := r.db.selectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("error listing sales: %w", err)
	}
	return events, nil
}
