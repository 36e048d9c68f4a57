package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/table-service/internal/model"
)

// CallRepo persists waiter calls and bill requests.  The generated
// open_key column carries a unique index, so the database itself refuses
// a second OPEN call of the same type at a table.
type CallRepo struct {
	db *sql.DB
}

// NewCallRepo returns a CallRepo bound to db.
func NewCallRepo(db *sql.DB) *CallRepo { return &CallRepo{db: db} }

const callColumns = `c.id, c.restaurant_id, c.table_id, t.label, c.type, c.status, c.created_at, c.resolved_at, c.resolved_by`

const callFrom = ` FROM calls c JOIN dining_tables t ON t.id = c.table_id `

func scanCall(row interface{ Scan(...any) error }) (*model.Call, error) {
	var (
		c     model.Call
		resAt sql.NullTime
		resBy sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.RestaurantID, &c.TableID, &c.TableLabel, &c.Type, &c.Status, &c.CreatedAt, &resAt, &resBy); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.ResolvedAt, c.ResolvedBy = timePtr(resAt), uintPtr(resBy)
	return &c, nil
}

func (r *CallRepo) one(ctx context.Context, where string, args ...any) (*model.Call, error) {
	c, err := scanCall(r.db.QueryRowContext(ctx, `SELECT `+callColumns+callFrom+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *CallRepo) many(ctx context.Context, where string, args ...any) ([]model.Call, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+callColumns+callFrom+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Get loads a call by id.
func (r *CallRepo) Get(ctx context.Context, id uint64) (*model.Call, error) {
	return r.one(ctx, `WHERE c.id = ?`, id)
}

// FindOpen returns the OPEN call of callType at tableID, or ErrNotFound.
func (r *CallRepo) FindOpen(ctx context.Context, tableID uint64, callType model.CallType) (*model.Call, error) {
	return r.one(ctx, `WHERE c.table_id = ? AND c.type = ? AND c.status = 'OPEN'`, tableID, callType)
}

// Create inserts an OPEN call.  ErrDuplicate means another OPEN call of the
// same type already exists at the table.
func (r *CallRepo) Create(ctx context.Context, c *model.Call) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO calls (restaurant_id, table_id, type, status, created_at) VALUES (?, ?, ?, 'OPEN', ?)`,
		c.RestaurantID, c.TableID, c.Type, c.CreatedAt)
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
	c.ID = uint64(id)
	c.Status = model.CallOpen
	return nil
}

// Resolve moves an OPEN call to RESOLVED.  ErrStaleState means the call
// was not OPEN (or not in the restaurant) at the time of the update.
func (r *CallRepo) Resolve(ctx context.Context, restaurantID, id, actorID uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE calls SET status = 'RESOLVED', resolved_at = ?, resolved_by = ?
		 WHERE id = ? AND restaurant_id = ? AND status = 'OPEN'`, at, actorID, id, restaurantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrStaleState
	}
	return nil
}

// ListOpenByTable returns the OPEN calls of a table, oldest first.
func (r *CallRepo) ListOpenByTable(ctx context.Context, tableID uint64) ([]model.Call, error) {
	return r.many(ctx, `WHERE c.table_id = ? AND c.status = 'OPEN' ORDER BY c.created_at, c.id`, tableID)
}

// ListOpen returns the OPEN calls of a restaurant, oldest first.
func (r *CallRepo) ListOpen(ctx context.Context, restaurantID uint64) ([]model.Call, error) {
	return r.many(ctx, `WHERE c.restaurant_id = ? AND c.status = 'OPEN' ORDER BY c.created_at, c.id`, restaurantID)
}

// LatestResolvedUnrated returns the most recently resolved call of the
// table resolved at or after since that has no rating yet.
func (r *CallRepo) LatestResolvedUnrated(ctx context.Context, tableID uint64, since time.Time) (*model.Call, error) {
	return r.one(ctx,
		`LEFT JOIN ratings rt ON rt.call_id = c.id
		 WHERE c.table_id = ? AND c.status = 'RESOLVED' AND c.resolved_at >= ? AND rt.id IS NULL
		 ORDER BY c.resolved_at DESC, c.id DESC LIMIT 1`, tableID, since)
}

// CountOpen returns how many calls of the restaurant are OPEN.
func (r *CallRepo) CountOpen(ctx context.Context, restaurantID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM calls WHERE restaurant_id = ? AND status = 'OPEN'`, restaurantID).Scan(&n)
	return n, err
}
