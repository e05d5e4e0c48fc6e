package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store persists carts and their lines. Uniqueness of one cart per user and one
// anonymous cart per session token is enforced by the store; CreateCart reports a
// violation as ErrConflict.
type Store interface {
	FindUserCart(ctx context.Context, userID string) (*Cart, error)
	FindSessionCart(ctx context.Context, sessionKey string) (*Cart, error)
	CreateCart(ctx context.Context, c *Cart) error
	DeleteCart(ctx context.Context, cartID string) error

	Lines(ctx context.Context, cartID string) ([]Line, error)
	GetLine(ctx context.Context, cartID, lineID string) (Line, error)
	// AddQuantity inserts the line or increments an existing one in a single statement.
	AddQuantity(ctx context.Context, cartID, productID string, qty int) (Line, bool, error)
	SetQuantity(ctx context.Context, cartID, lineID string, qty int) error
	DeleteLine(ctx context.Context, cartID, lineID string) error
	ClearLines(ctx context.Context, cartID string) error
}

const uniqueViolation = "23505"

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Store {
	return &repo{db: db}
}

const cartColumns = `id, COALESCE(user_id, ''), COALESCE(session_key, ''), created_at, updated_at`

func (r *repo) FindUserCart(ctx context.Context, userID string) (*Cart, error) {
	return r.findCart(ctx, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, userID)
}

func (r *repo) FindSessionCart(ctx context.Context, sessionKey string) (*Cart, error) {
	return r.findCart(ctx, `SELECT `+cartColumns+` FROM carts WHERE session_key = $1 AND user_id IS NULL`, sessionKey)
}

func (r *repo) findCart(ctx context.Context, query string, key string) (*Cart, error) {
	var c Cart
	err := r.db.QueryRowContext(ctx, query, key).Scan(&c.ID, &c.UserID, &c.SessionKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}
	return &c, nil
}

func (r *repo) CreateCart(ctx context.Context, c *Cart) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	const insertCartSQL = `
INSERT INTO carts (id, user_id, session_key, created_at, updated_at)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NOW(), NOW())
RETURNING created_at, updated_at
`
	err := r.db.QueryRowContext(ctx, insertCartSQL, c.ID, c.UserID, c.SessionKey).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (r *repo) DeleteCart(ctx context.Context, cartID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

const lineSelect = `
SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.sku, p.slug, p.price, ci.quantity, ci.added_at
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
`

func (r *repo) Lines(ctx context.Context, cartID string) ([]Line, error) {
	rows, err := r.db.QueryContext(ctx, lineSelect+`WHERE ci.cart_id = $1 ORDER BY ci.added_at DESC`, cartID)
	if err != nil {
		return nil, fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return lines, nil
}

func (r *repo) GetLine(ctx context.Context, cartID, lineID string) (Line, error) {
	l, err := scanLine(r.db.QueryRowContext(ctx, lineSelect+`WHERE ci.cart_id = $1 AND ci.id = $2`, cartID, lineID))
	if errors.Is(err, sql.ErrNoRows) {
		return Line{}, ErrLineNotFound
	}
	return l, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLine(row rowScanner) (Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.CartID, &l.ProductID, &l.ProductName, &l.ProductSKU, &l.ProductSlug, &l.UnitPrice, &l.Quantity, &l.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Line{}, err
		}
		return Line{}, fmt.Errorf("scan cart_item: %w", err)
	}
	return l, nil
}

func (r *repo) AddQuantity(ctx context.Context, cartID, productID string, qty int) (Line, bool, error) {
	l := Line{CartID: cartID, ProductID: productID}
	var inserted bool

	err := r.withTx(ctx, cartID, func(tx *sql.Tx) error {
		const upsertItemSQL = `
INSERT INTO cart_items (id, cart_id, product_id, quantity, added_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
ON CONFLICT (cart_id, product_id) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
RETURNING id, quantity, added_at, (xmax = 0)
`
		return tx.QueryRowContext(ctx, upsertItemSQL, uuid.NewString(), cartID, productID, qty).
			Scan(&l.ID, &l.Quantity, &l.AddedAt, &inserted)
	})
	if err != nil {
		return Line{}, false, fmt.Errorf("upsert cart_item: %w", err)
	}
	return l, inserted, nil
}

func (r *repo) SetQuantity(ctx context.Context, cartID, lineID string, qty int) error {
	return r.withTx(ctx, cartID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE cart_items SET quantity = $3, updated_at = NOW() WHERE cart_id = $1 AND id = $2`,
			cartID, lineID, qty)
		if err != nil {
			return fmt.Errorf("update cart_item: %w", err)
		}
		return requireAffected(res)
	})
}

func (r *repo) DeleteLine(ctx context.Context, cartID, lineID string) error {
	return r.withTx(ctx, cartID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`, cartID, lineID)
		if err != nil {
			return fmt.Errorf("delete cart_item: %w", err)
		}
		return requireAffected(res)
	})
}

func (r *repo) ClearLines(ctx context.Context, cartID string) error {
	return r.withTx(ctx, cartID, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return fmt.Errorf("clear cart_items: %w", err)
		}
		return nil
	})
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrLineNotFound
	}
	return nil
}

// withTx runs fn and bumps the cart's updated_at in the same transaction.
func (r *repo) withTx(ctx context.Context, cartID string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
