package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/table-service/internal/model"
)

// OrderRepo persists orders, their items and the status log.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to db.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// transitionColumns maps a target status to the timestamp and actor
// columns that transition fills in.
var transitionColumns = map[model.OrderStatus][2]string{
	model.OrderConfirmed: {"confirmed_at", "confirmed_by"},
	model.OrderPreparing: {"preparing_at", "prepared_by"},
	model.OrderReady:     {"ready_at", "ready_by"},
	model.OrderDelivered: {"delivered_at", "delivered_by"},
	model.OrderCancelled: {"cancelled_at", "cancelled_by"},
}

const orderColumns = `o.id, o.restaurant_id, o.table_id, t.label, o.status, o.notes, o.total_cents, o.created_at,
	o.confirmed_at, o.confirmed_by, o.preparing_at, o.prepared_by, o.ready_at, o.ready_by,
	o.delivered_at, o.delivered_by, o.cancelled_at, o.cancelled_by`

const orderFrom = ` FROM orders o JOIN dining_tables t ON t.id = o.table_id `

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var (
		o                                   model.Order
		notes                               sql.NullString
		confAt, prepAt, readyAt, delAt, cAt sql.NullTime
		confBy, prepBy, readyBy, delBy, cBy sql.NullInt64
	)
	err := row.Scan(&o.ID, &o.RestaurantID, &o.TableID, &o.TableLabel, &o.Status, &notes, &o.TotalCents, &o.CreatedAt,
		&confAt, &confBy, &prepAt, &prepBy, &readyAt, &readyBy, &delAt, &delBy, &cAt, &cBy)
	if err != nil {
		return nil, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.Notes = strPtr(notes)
	o.ConfirmedAt, o.ConfirmedBy = timePtr(confAt), uintPtr(confBy)
	o.PreparingAt, o.PreparedBy = timePtr(prepAt), uintPtr(prepBy)
	o.ReadyAt, o.ReadyBy = timePtr(readyAt), uintPtr(readyBy)
	o.DeliveredAt, o.DeliveredBy = timePtr(delAt), uintPtr(delBy)
	o.CancelledAt, o.CancelledBy = timePtr(cAt), uintPtr(cBy)
	return &o, nil
}

// Create inserts the order, its items and the initial status log entry in
// one transaction.  IDs are written back into o and its items.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (restaurant_id, table_id, status, notes, total_cents, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		o.RestaurantID, o.TableID, o.Status, nullString(o.Notes), o.TotalCents, o.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)

	if len(o.Items) > 0 {
		query := `INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price_cents, note) VALUES `
		args := make([]any, 0, len(o.Items)*6)
		for i, it := range o.Items {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?)"
			args = append(args, o.ID, it.MenuItemID, it.Name, it.Quantity, it.UnitPriceCents, nullString(it.Note))
		}
		res, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		// Multi-row inserts report the id of the first row; ids are consecutive
		// under InnoDB's default lock mode for a single statement.
		first, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for i := range o.Items {
			o.Items[i].ID = uint64(first) + uint64(i)
			o.Items[i].OrderID = o.ID
		}
	}

	if err := insertStatusLog(ctx, tx, o.ID, "", o.Status, 0, o.CreatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Get loads an order with its items.
func (r *OrderRepo) Get(ctx context.Context, id uint64) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+orderFrom+`WHERE o.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.attachItems(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// Transition applies t as a single UPDATE conditioned on the current status
// and records it in order_status_log within the same transaction.  When
// no row matches (the status moved on, or the order is outside the
// restaurant) it returns ErrStaleState and nothing is written.
func (r *OrderRepo) Transition(ctx context.Context, t model.OrderTransition) error {
	cols, ok := transitionColumns[t.To]
	if !ok {
		return fmt.Errorf("no transition into %s", t.To)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	q := `UPDATE orders SET status = ?, ` + cols[0] + ` = ?, ` + cols[1] + ` = ?
	      WHERE id = ? AND restaurant_id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, t.To, t.At, t.ActorID, t.OrderID, t.RestaurantID, t.From)
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
	if err := insertStatusLog(ctx, tx, t.OrderID, t.From, t.To, t.ActorID, t.At); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func insertStatusLog(ctx context.Context, tx *sql.Tx, orderID uint64, from, to model.OrderStatus, actorID uint64, at time.Time) error {
	var fromVal, actorVal any
	if from != "" {
		fromVal = string(from)
	}
	if actorID != 0 {
		actorVal = actorID
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_status_log (order_id, from_status, to_status, actor_id, changed_at) VALUES (?, ?, ?, ?, ?)`,
		orderID, fromVal, string(to), actorVal, at)
	return err
}

// ListByStatus returns the restaurant's orders in any of statuses, oldest first.
func (r *OrderRepo) ListByStatus(ctx context.Context, restaurantID uint64, statuses []model.OrderStatus) ([]model.Order, error) {
	return r.list(ctx, `o.restaurant_id = ?`, restaurantID, statuses)
}

// ListByTable returns the table's orders in any of statuses, oldest first.
func (r *OrderRepo) ListByTable(ctx context.Context, tableID uint64, statuses []model.OrderStatus) ([]model.Order, error) {
	return r.list(ctx, `o.table_id = ?`, tableID, statuses)
}

func (r *OrderRepo) list(ctx context.Context, scope string, scopeID uint64, statuses []model.OrderStatus) ([]model.Order, error) {
	if len(statuses) == 0 {
		return []model.Order{}, nil
	}
	args := []any{scopeID}
	for _, s := range statuses {
		args = append(args, string(s))
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+orderFrom+`WHERE `+scope+` AND o.status IN (`+placeholders(len(statuses))+`)
		 ORDER BY o.created_at, o.id`, args...)
	if err != nil {
		return nil, err
	}
	var ptrs []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, ptrs); err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(ptrs))
	for _, o := range ptrs {
		out = append(out, *o)
	}
	return out, nil
}

// attachItems loads the items of all orders with a single IN query.
func (r *OrderRepo) attachItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[uint64]*model.Order, len(orders))
	args := make([]any, 0, len(orders))
	for _, o := range orders {
		o.Items = []model.OrderItem{}
		byID[o.ID] = o
		args = append(args, o.ID)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, menu_item_id, name, quantity, unit_price_cents, note FROM order_items
		 WHERE order_id IN (`+placeholders(len(orders))+`) ORDER BY id`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.OrderItem
		var note sql.NullString
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity, &it.UnitPriceCents, &note); err != nil {
			return err
		}
		it.Note = strPtr(note)
		if o := byID[it.OrderID]; o != nil {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

// StatusCount is one row of the live summary: how many orders of the
// restaurant reached Status since a cut-off, and their summed totals.
type StatusCount struct {
	Status     model.OrderStatus
	Count      int
	TotalCents int64
}

// CountByStatusSince groups the restaurant's orders created at or after
// since by status.
func (r *OrderRepo) CountByStatusSince(ctx context.Context, restaurantID uint64, since time.Time) ([]StatusCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(total_cents), 0) FROM orders
		 WHERE restaurant_id = ? AND created_at >= ? GROUP BY status`, restaurantID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count, &sc.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
