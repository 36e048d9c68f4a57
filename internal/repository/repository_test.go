package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-service/internal/model"
)

func newMock(t *testing.T) (sqlmock.Sqlmock, *OrderRepo, *CallRepo, *RatingRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, NewOrderRepo(db), NewCallRepo(db), NewRatingRepo(db)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestOrderTransitionIsConditionalUpdate(t *testing.T) {
	mock, orders, _, _ := newMock(t)
	at := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status = ?, preparing_at = ?, prepared_by = ?`)).
		WithArgs(model.OrderPreparing, at, uint64(9), uint64(42), uint64(1), model.OrderConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_status_log`)).
		WithArgs(uint64(42), "CONFIRMED", "PREPARING", uint64(9), at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := orders.Transition(context.Background(), model.OrderTransition{
		OrderID: 42, RestaurantID: 1, From: model.OrderConfirmed, To: model.OrderPreparing, ActorID: 9, At: at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderTransitionLostRaceRollsBack(t *testing.T) {
	mock, orders, _, _ := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status = ?, delivered_at = ?, delivered_by = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := orders.Transition(context.Background(), model.OrderTransition{
		OrderID: 42, RestaurantID: 1, From: model.OrderReady, To: model.OrderDelivered, ActorID: 3, At: time.Now(),
	})
	assert.ErrorIs(t, err, ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderTransitionRejectsUnknownTarget(t *testing.T) {
	_, orders, _, _ := newMock(t)
	err := orders.Transition(context.Background(), model.OrderTransition{OrderID: 1, To: model.OrderPending})
	assert.Error(t, err)
}

func TestOrderCreateWritesItemsAndLog(t *testing.T) {
	mock, orders, _, _ := newMock(t)
	o := &model.Order{
		RestaurantID: 1, TableID: 5, Status: model.OrderPending, TotalCents: 2700,
		CreatedAt: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
		Items: []model.OrderItem{
			{MenuItemID: 10, Name: "Soup", Quantity: 3, UnitPriceCents: 500},
			{MenuItemID: 11, Name: "Steak", Quantity: 1, UnitPriceCents: 1200},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders`)).WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items`)).WillReturnResult(sqlmock.NewResult(300, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_status_log`)).
		WithArgs(uint64(77), nil, "PENDING", nil, o.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, orders.Create(context.Background(), o))
	assert.Equal(t, uint64(77), o.ID)
	assert.Equal(t, uint64(300), o.Items[0].ID)
	assert.Equal(t, uint64(301), o.Items[1].ID)
	assert.Equal(t, uint64(77), o.Items[1].OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallCreateDuplicateOpenCall(t *testing.T) {
	mock, _, calls, _ := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO calls`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '5:CALL_WAITER' for key 'uq_calls_open_key'"})

	err := calls.Create(context.Background(), &model.Call{RestaurantID: 1, TableID: 5, Type: model.CallWaiter, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallResolveAlreadyResolved(t *testing.T) {
	mock, _, calls, _ := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE calls SET status = 'RESOLVED'`)).
		WithArgs(sqlmock.AnyArg(), uint64(2), uint64(8), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := calls.Resolve(context.Background(), 1, 8, 2, time.Now())
	assert.ErrorIs(t, err, ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingCreateDuplicate(t *testing.T) {
	mock, _, _, ratings := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ratings`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := ratings.Create(context.Background(), &model.Rating{CallID: 8, Stars: 5, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCallGetNotFound(t *testing.T) {
	mock, _, calls, _ := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM calls c JOIN dining_tables t`)).
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := calls.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
