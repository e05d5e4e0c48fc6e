package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Repository interface {
	// Place snapshots the cart's lines into a new order and empties the cart in
	// one transaction. o carries the customer details; the rest is filled in.
	Place(ctx context.Context, o *Order) error
	GetByNumber(ctx context.Context, userID, number string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// LatestByUser returns the user's most recent order without its lines.
	LatestByUser(ctx context.Context, userID string) (*Order, error)
	// UpdateStatus moves an order from one status to another, reporting false
	// when the order was not in the expected status.
	UpdateStatus(ctx context.Context, orderID string, from, to Status) (bool, error)
	// MarkEventPublished records that the order's OrderPlaced event reached the broker.
	MarkEventPublished(ctx context.Context, orderID string) error
	// ListUnpublished returns orders whose OrderPlaced event was never
	// published, ordered by partition and sequence.
	ListUnpublished(ctx context.Context, limit int) ([]Order, error)
}

type repo struct {
	db      *sql.DB
	numbers *NumberGenerator
}

func NewRepository(db *sql.DB, numbers *NumberGenerator) Repository {
	return &repo{db: db, numbers: numbers}
}

func (r *repo) Place(ctx context.Context, o *Order) (err error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// current prices are read under the same transaction that freezes them
	o.Lines, err = lockCartLines(ctx, tx, o.CartID)
	if err != nil {
		return err
	}
	if len(o.Lines) == 0 {
		return ErrEmptyCart
	}
	o.Total = o.LinesTotal()
	o.Status = StatusPending

	o.Number, err = r.numbers.NextUnique(ctx, func(ctx context.Context, number string) (bool, error) {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`, number).Scan(&exists)
		return exists, err
	})
	if err != nil {
		return err
	}

	// a rolled-back order releases its sequence, so committed orders have no gaps
	o.EventSequence, err = nextEventSequence(ctx, tx, o.UserID)
	if err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (id, order_number, user_id, status, customer_name, customer_email, customer_phone, delivery_address, notes, total_amount, event_sequence, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
         RETURNING created_at, updated_at`,
		o.ID, o.Number, o.UserID, o.Status, o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.DeliveryAddress, o.Notes, o.Total, o.EventSequence,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, l := range o.Lines {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price)
             VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), o.ID, l.ProductID, l.ProductName, l.Quantity, l.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, o.CartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, o.CartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// nextEventSequence bumps the user's OrderPlaced partition counter inside tx.
func nextEventSequence(ctx context.Context, tx *sql.Tx, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, errors.New("event partition key is required")
	}

	const upsertSequenceSQL = `
INSERT INTO event_sequences (partition_key, last_sequence, updated_at)
VALUES ($1, 1, NOW())
ON CONFLICT (partition_key) DO UPDATE
SET last_sequence = event_sequences.last_sequence + 1, updated_at = NOW()
RETURNING last_sequence
`
	var seq int64
	if err := tx.QueryRowContext(ctx, upsertSequenceSQL, partitionKey).Scan(&seq); err != nil {
		return 0, fmt.Errorf("reserve event sequence: %w", err)
	}
	return seq, nil
}

func lockCartLines(ctx context.Context, tx *sql.Tx, cartID string) ([]Line, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT ci.product_id, p.name, ci.quantity, p.price
         FROM cart_items ci
         JOIN products p ON p.id = ci.product_id
         WHERE ci.cart_id = $1
         ORDER BY ci.added_at
         FOR UPDATE OF ci`,
		cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &l.Price); err != nil {
			return nil, fmt.Errorf("scan cart_item: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return lines, nil
}

const orderColumns = `id, order_number, user_id, status, customer_name, customer_email, customer_phone, delivery_address, notes, total_amount, event_sequence, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.Status, &o.CustomerName, &o.CustomerEmail,
		&o.CustomerPhone, &o.DeliveryAddress, &o.Notes, &o.Total, &o.EventSequence, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *repo) GetByNumber(ctx context.Context, userID, number string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1 AND user_id = $2`,
		number, userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	orders := []Order{o}
	if err := r.loadLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

func (r *repo) LatestByUser(ctx context.Context, userID string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`,
		userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select latest order: %w", err)
	}
	return &o, nil
}

func (r *repo) ListUnpublished(ctx context.Context, limit int) ([]Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE event_published_at IS NULL ORDER BY user_id, event_sequence LIMIT $1`,
		limit,
	)
}

func (r *repo) queryOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if err := r.loadLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadLines fetches the lines of all given orders in a single query.
func (r *repo) loadLines(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, product_id, product_name, quantity, price
         FROM order_items WHERE order_id = ANY($1) ORDER BY product_name`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			l       Line
		)
		if err := rows.Scan(&orderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.Price); err != nil {
			return fmt.Errorf("scan order_item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Lines = append(orders[i].Lines, l)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	return nil
}

func (r *repo) UpdateStatus(ctx context.Context, orderID string, from, to Status) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		orderID, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *repo) MarkEventPublished(ctx context.Context, orderID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET event_published_at = NOW() WHERE id = $1 AND event_published_at IS NULL`,
		orderID,
	)
	if err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	return nil
}
