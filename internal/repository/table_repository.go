package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/table-service/internal/model"
	"github.com/iliyamo/table-service/internal/utils"
)

// TableRepo provides access to dining_tables and to the per-restaurant
// settings row used by the rating gate.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a TableRepo bound to db.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

const tableColumns = `id, restaurant_id, label, token, is_active, created_at`

func scanTable(row interface{ Scan(...any) error }) (*model.Table, error) {
	var t model.Table
	if err := row.Scan(&t.ID, &t.RestaurantID, &t.Label, &t.Token, &t.IsActive, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetByID loads a table by primary key.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
	return scanTable(r.db.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM dining_tables WHERE id = ?`, id))
}

// GetByToken loads a table by its QR token.
func (r *TableRepo) GetByToken(ctx context.Context, token string) (*model.Table, error) {
	return scanTable(r.db.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM dining_tables WHERE token = ?`, token))
}

// Create inserts an active table with a freshly issued token.  A token
// collision surfaces as ErrDuplicate; callers may simply try again.
func (r *TableRepo) Create(ctx context.Context, restaurantID uint64, label string) (*model.Table, error) {
	t := &model.Table{
		RestaurantID: restaurantID,
		Label:        label,
		Token:        utils.NewTableToken(),
		IsActive:     true,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO dining_tables (restaurant_id, label, token, is_active, created_at) VALUES (?, ?, ?, TRUE, ?)`,
		t.RestaurantID, t.Label, t.Token, t.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	t.ID = uint64(id)
	return t, nil
}

// Deactivate marks a table inactive.  The token stays reserved.
func (r *TableRepo) Deactivate(ctx context.Context, restaurantID, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dining_tables SET is_active = FALSE WHERE id = ? AND restaurant_id = ?`, id, restaurantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or already inactive; distinguish for the caller.
		var exists bool
		err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM dining_tables WHERE id = ? AND restaurant_id = ?)`, id, restaurantID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

// Settings returns the rating settings of a restaurant.
func (r *TableRepo) Settings(ctx context.Context, restaurantID uint64) (model.RestaurantSettings, error) {
	s := model.RestaurantSettings{RestaurantID: restaurantID}
	var url sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT min_stars_redirect, google_reviews_enabled, google_reviews_url FROM restaurants WHERE id = ?`,
		restaurantID).Scan(&s.MinStarsRedirect, &s.GoogleReviewsEnabled, &url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, ErrNotFound
		}
		return s, err
	}
	s.GoogleReviewsURL = url.String
	return s, nil
}
