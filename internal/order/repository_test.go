package order

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decimalArg matches a decimal driver value by numeric equality.
type decimalArg string

func (d decimalArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	got, err := decimal.NewFromString(s)
	return err == nil && got.Equal(decimal.RequireFromString(string(d)))
}

var orderCols = []string{"id", "order_number", "user_id", "status", "customer_name", "customer_email", "customer_phone", "delivery_address", "notes", "total_amount", "event_sequence", "created_at", "updated_at"}

func fixedNumbers(values ...string) *NumberGenerator {
	return &NumberGenerator{prefix: "KC", random: func() string {
		v := values[0]
		values = values[1:]
		return v
	}}
}

func newOrderMock(t *testing.T, numbers *NumberGenerator) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db, numbers), mock
}

func TestRepositoryPlace_FreezesPricesAndClearsCart(t *testing.T) {
	repo, mock := newOrderMock(t, fixedNumbers("0000AAAA", "0000BBBB"))
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE OF ci`)).
		WithArgs("cart-1").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "quantity", "price"}).
			AddRow("X", "Product X", 2, "10.00").
			AddRow("Y", "Product Y", 1, "5.50"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`)).
		WithArgs("KC-0000AAAA").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`)).
		WithArgs("KC-0000BBBB").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO event_sequences`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"last_sequence"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO orders`)).
		WithArgs(sqlmock.AnyArg(), "KC-0000BBBB", "u1", "pending", "Siti", "siti@example.com", "+60123456789", "12 Jalan Bukit Bintang", "", decimalArg("25.50"), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "X", "Product X", 2, decimalArg("10.00")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Y", "Product Y", 1, decimalArg("5.50")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE cart_id = $1`)).
		WithArgs("cart-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE carts SET updated_at = NOW() WHERE id = $1`)).
		WithArgs("cart-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	o := &Order{
		UserID:          "u1",
		CartID:          "cart-1",
		CustomerName:    "Siti",
		CustomerEmail:   "siti@example.com",
		CustomerPhone:   "+60123456789",
		DeliveryAddress: "12 Jalan Bukit Bintang",
	}
	require.NoError(t, repo.Place(context.Background(), o))

	assert.Equal(t, "KC-0000BBBB", o.Number)
	assert.Equal(t, int64(7), o.EventSequence)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "25.50", o.Total.StringFixed(2))
	assert.Len(t, o.Lines, 2)
	assert.Equal(t, 3, o.TotalItems())
	assert.Equal(t, now, o.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryPlace_EmptyCartCreatesNothing(t *testing.T) {
	repo, mock := newOrderMock(t, NewNumberGenerator("KC"))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE OF ci`)).
		WithArgs("cart-1").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "quantity", "price"}))
	mock.ExpectRollback()

	err := repo.Place(context.Background(), &Order{UserID: "u1", CartID: "cart-1"})
	require.ErrorIs(t, err, ErrEmptyCart)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryPlace_RollsBackOnItemFailure(t *testing.T) {
	repo, mock := newOrderMock(t, fixedNumbers("0000CCCC"))
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE OF ci`)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "quantity", "price"}).
			AddRow("X", "Product X", 1, "3.00"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO event_sequences`)).
		WillReturnRows(sqlmock.NewRows([]string{"last_sequence"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO orders`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	err := repo.Place(context.Background(), &Order{UserID: "u1", CartID: "cart-1"})
	require.ErrorContains(t, err, "insert order_item")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByNumber(t *testing.T) {
	repo, mock := newOrderMock(t, nil)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE order_number = $1 AND user_id = $2`)).
		WithArgs("KC-1", "u1").
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow("o1", "KC-1", "u1", "pending", "Siti", "siti@example.com", "+60123456789", "addr", "", "25.50", int64(1), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_items WHERE order_id = ANY($1)`)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "product_name", "quantity", "price"}).
			AddRow("o1", "X", "Product X", 2, "10.00").
			AddRow("o1", "Y", "Product Y", 1, "5.50"))

	o, err := repo.GetByNumber(context.Background(), "u1", "KC-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Len(t, o.Lines, 2)
	assert.True(t, o.Total.Equal(o.LinesTotal()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByNumber_OtherUser(t *testing.T) {
	repo, mock := newOrderMock(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE order_number = $1 AND user_id = $2`)).
		WithArgs("KC-1", "intruder").
		WillReturnRows(sqlmock.NewRows(orderCols))

	_, err := repo.GetByNumber(context.Background(), "intruder", "KC-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryListByUser(t *testing.T) {
	repo, mock := newOrderMock(t, nil)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE user_id = $1 ORDER BY created_at DESC`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow("o2", "KC-2", "u1", "pending", "Siti", "s@example.com", "+60123456789", "addr", "", "3.00", int64(2), now, now).
			AddRow("o1", "KC-1", "u1", "delivered", "Siti", "s@example.com", "+60123456789", "addr", "", "5.50", int64(1), now.Add(-time.Hour), now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_items WHERE order_id = ANY($1)`)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "product_name", "quantity", "price"}).
			AddRow("o1", "Y", "Product Y", 1, "5.50").
			AddRow("o2", "X", "Product X", 1, "3.00"))

	orders, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "KC-2", orders[0].Number)
	assert.Equal(t, "X", orders[0].Lines[0].ProductID)
	assert.Equal(t, "Y", orders[1].Lines[0].ProductID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListByUser_None(t *testing.T) {
	repo, mock := newOrderMock(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(orderCols))

	orders, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdateStatus(t *testing.T) {
	repo, mock := newOrderMock(t, nil)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status = $3`)).
		WithArgs("o1", "pending", "cancelled").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status = $3`)).
		WithArgs("o1", "pending", "cancelled").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateStatus(context.Background(), "o1", StatusPending, StatusCancelled)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(context.Background(), "o1", StatusPending, StatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryPlace_SequenceFailureRollsBack(t *testing.T) {
	repo, mock := newOrderMock(t, fixedNumbers("0000DDDD"))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE OF ci`)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "quantity", "price"}).
			AddRow("X", "Product X", 1, "3.00"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO event_sequences`)).
		WithArgs("u1").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.Place(context.Background(), &Order{UserID: "u1", CartID: "cart-1"})
	require.ErrorContains(t, err, "reserve event sequence")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryMarkEventPublished(t *testing.T) {
	repo, mock := newOrderMock(t, nil)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET event_published_at = NOW() WHERE id = $1 AND event_published_at IS NULL`)).
		WithArgs("o1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkEventPublished(context.Background(), "o1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListUnpublished(t *testing.T) {
	repo, mock := newOrderMock(t, nil)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE event_published_at IS NULL ORDER BY user_id, event_sequence LIMIT $1`)).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow("o3", "KC-3", "u1", "pending", "Siti", "s@example.com", "+60123456789", "addr", "", "3.00", int64(3), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_items WHERE order_id = ANY($1)`)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "product_name", "quantity", "price"}).
			AddRow("o3", "X", "Product X", 1, "3.00"))

	orders, err := repo.ListUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(3), orders[0].EventSequence)
	assert.Len(t, orders[0].Lines, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryLatestByUser(t *testing.T) {
	repo, mock := newOrderMock(t, nil)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow("o2", "KC-2", "u1", "delivered", "Siti", "s@example.com", "+60123456789", "12 Jalan Ampang", "", "3.00", int64(2), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`)).
		WithArgs("u2").
		WillReturnRows(sqlmock.NewRows(orderCols))

	o, err := repo.LatestByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "12 Jalan Ampang", o.DeliveryAddress)
	assert.Empty(t, o.Lines)

	_, err = repo.LatestByUser(context.Background(), "u2")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
