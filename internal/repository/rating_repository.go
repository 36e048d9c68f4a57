package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/table-service/internal/model"
)

// RatingRepo persists call ratings.  ratings.call_id is unique.
type RatingRepo struct {
	db *sql.DB
}

// NewRatingRepo returns a RatingRepo bound to db.
func NewRatingRepo(db *sql.DB) *RatingRepo { return &RatingRepo{db: db} }

// Create inserts a rating; ErrDuplicate when the call is already rated.
func (r *RatingRepo) Create(ctx context.Context, rt *model.Rating) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings (call_id, stars, feedback, redirected_google, created_at) VALUES (?, ?, ?, ?, ?)`,
		rt.CallID, rt.Stars, nullString(rt.Feedback), rt.RedirectedGoogle, rt.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)
	return nil
}

// ExistsForCall reports whether the call already has a rating.
func (r *RatingRepo) ExistsForCall(ctx context.Context, callID uint64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM ratings WHERE call_id = ?)`, callID).Scan(&exists)
	return exists, err
}
