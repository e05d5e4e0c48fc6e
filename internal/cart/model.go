package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Identity is who a request acts for. UserID is set once the visitor is
// authenticated; SessionToken correlates anonymous requests before that.
type Identity struct {
	UserID       string
	SessionToken string
}

func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

type Line struct {
	ID          string          `json:"id"`
	CartID      string          `json:"-"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	ProductSKU  string          `json:"sku"`
	ProductSlug string          `json:"slug"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	AddedAt     time.Time       `json:"addedAt"`
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	ID         string    `json:"cartId"`
	UserID     string    `json:"userId,omitempty"`
	SessionKey string    `json:"-"`
	Lines      []Line    `json:"items"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TotalItems is the sum of quantities. A nil cart has no items.
func (c *Cart) TotalItems() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for _, l := range c.Lines {
		total = total.Add(l.Total())
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return c.TotalItems() == 0
}

func (c *Cart) Anonymous() bool {
	return c.UserID == ""
}

// Summary is the count/total pair served to the header badge.
type Summary struct {
	Count int             `json:"cart_count"`
	Total decimal.Decimal `json:"cart_total"`
}

func (c *Cart) Summary() Summary {
	return Summary{Count: c.TotalItems(), Total: c.TotalPrice()}
}
