package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("not found")

const relatedLimit = 4

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	ListProducts(ctx context.Context, f Filter) ([]Product, error)
	GetPublishedProduct(ctx context.Context, productID string) (Product, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	RelatedProducts(ctx context.Context, p Product) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (Category, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const productColumns = `p.id, COALESCE(p.category_id, ''), p.sku, p.name, p.slug, p.description, p.price, p.is_published, p.created_at`

// likeEscaper makes user input match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *PostgresRepository) ListProducts(ctx context.Context, f Filter) ([]Product, error) {
	var (
		where = []string{"p.is_published = TRUE"}
		args  []any
	)

	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+likeEscaper.Replace(q)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(p.name ILIKE $%d ESCAPE '\' OR p.description ILIKE $%d ESCAPE '\' OR p.sku ILIKE $%d ESCAPE '\')`, n, n, n))
	}
	if f.CategorySlug != "" {
		args = append(args, f.CategorySlug)
		where = append(where, fmt.Sprintf("c.slug = $%d", len(args)))
	}

	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + f.OrderBy()

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return r.queryProducts(ctx, query, args...)
}

func (r *PostgresRepository) GetPublishedProduct(ctx context.Context, productID string) (Product, error) {
	return r.queryProduct(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1 AND p.is_published = TRUE`, productID)
}

func (r *PostgresRepository) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	return r.queryProduct(ctx, `SELECT `+productColumns+` FROM products p WHERE p.slug = $1 AND p.is_published = TRUE`, slug)
}

func (r *PostgresRepository) RelatedProducts(ctx context.Context, p Product) ([]Product, error) {
	if p.CategoryID == "" {
		return nil, nil
	}
	return r.queryProducts(ctx, `SELECT `+productColumns+`
		FROM products p
		WHERE p.category_id = $1 AND p.is_published = TRUE AND p.id <> $2
		ORDER BY p.created_at DESC
		LIMIT $3`, p.CategoryID, p.ID, relatedLimit)
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `SELECT id, name, slug, description FROM categories WHERE slug = $1`, slug).
		Scan(&c.ID, &c.Name, &c.Slug, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, fmt.Errorf("select category: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) queryProduct(ctx context.Context, query string, args ...any) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.CategoryID, &p.SKU, &p.Name, &p.Slug, &p.Description, &p.Price, &p.IsPublished, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.SKU, &p.Name, &p.Slug, &p.Description, &p.Price, &p.IsPublished, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
