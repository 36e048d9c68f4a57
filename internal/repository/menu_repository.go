package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/table-service/internal/model"
)

// MenuRepo reads menu items for order validation and pricing.
type MenuRepo struct {
	db *sql.DB
}

// NewMenuRepo returns a MenuRepo bound to db.
func NewMenuRepo(db *sql.DB) *MenuRepo { return &MenuRepo{db: db} }

// FindByIDs returns the items of restaurantID among ids, active or not.
// Missing ids are simply absent from the result.
func (r *MenuRepo) FindByIDs(ctx context.Context, restaurantID uint64, ids []uint64) ([]model.MenuItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, restaurantID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, restaurant_id, name, price_cents, is_active FROM menu_items
		 WHERE restaurant_id = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.MenuItem
	for rows.Next() {
		var m model.MenuItem
		if err := rows.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.PriceCents, &m.IsActive); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
