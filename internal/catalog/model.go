package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type Product struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"categoryId,omitempty"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsPublished bool            `json:"isPublished"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Filter narrows ListProducts. Zero value lists every published product, newest first.
type Filter struct {
	Query        string
	CategorySlug string
	Sort         string
	Limit        int
}

var sortColumns = map[string]string{
	"name":        "p.name ASC",
	"-name":       "p.name DESC",
	"price":       "p.price ASC",
	"-price":      "p.price DESC",
	"created_at":  "p.created_at ASC",
	"-created_at": "p.created_at DESC",
}

// OrderBy maps a whitelisted sort key to SQL; unknown keys fall back to newest first.
func (f Filter) OrderBy() string {
	if col, ok := sortColumns[f.Sort]; ok {
		return col
	}
	return sortColumns["-created_at"]
}
