package httpapi

import (
	"encoding/json"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

type cartLineResponse struct {
	ID          string      `json:"id"`
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName"`
	SKU         string      `json:"sku"`
	Slug        string      `json:"slug"`
	UnitPrice   json.Number `json:"unitPrice"`
	Quantity    int         `json:"quantity"`
	Total       json.Number `json:"total"`
}

type cartResponse struct {
	ID        string             `json:"cartId"`
	Items     []cartLineResponse `json:"items"`
	CartCount int                `json:"cart_count"`
	CartTotal json.Number        `json:"cart_total"`
}

func newCartResponse(c *cart.Cart) cartResponse {
	resp := cartResponse{
		ID:        c.ID,
		Items:     make([]cartLineResponse, 0, len(c.Lines)),
		CartCount: c.TotalItems(),
		CartTotal: money(c.TotalPrice()),
	}
	for _, l := range c.Lines {
		resp.Items = append(resp.Items, cartLineResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			SKU:         l.ProductSKU,
			Slug:        l.ProductSlug,
			UnitPrice:   money(l.UnitPrice),
			Quantity:    l.Quantity,
			Total:       money(l.Total()),
		})
	}
	return resp
}

type summaryResponse struct {
	CartCount int         `json:"cart_count"`
	CartTotal json.Number `json:"cart_total"`
}

func newSummaryResponse(s cart.Summary) summaryResponse {
	return summaryResponse{CartCount: s.Count, CartTotal: money(s.Total)}
}

type mutationResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	CartCount   int          `json:"cart_count"`
	CartTotal   json.Number  `json:"cart_total"`
	ItemTotal   *json.Number `json:"item_total,omitempty"`
	ItemRemoved bool         `json:"item_removed,omitempty"`
}

func newMutationResponse(res cart.Result) mutationResponse {
	resp := mutationResponse{
		Success:     true,
		Message:     res.Message,
		CartCount:   res.Summary.Count,
		CartTotal:   money(res.Summary.Total),
		ItemRemoved: res.Removed,
	}
	if res.Line != nil {
		total := money(res.Line.Total())
		resp.ItemTotal = &total
	}
	return resp
}

type productResponse struct {
	ID          string      `json:"id"`
	CategoryID  string      `json:"categoryId,omitempty"`
	SKU         string      `json:"sku"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func newProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		SKU:         p.SKU,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       money(p.Price),
		CreatedAt:   p.CreatedAt,
	}
}

func newProductsResponse(ps []catalog.Product) []productResponse {
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProductResponse(p))
	}
	return out
}

type orderLineResponse struct {
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName"`
	Quantity    int         `json:"quantity"`
	Price       json.Number `json:"price"`
	Total       json.Number `json:"total"`
}

type orderResponse struct {
	Number          string              `json:"orderNumber"`
	Status          order.Status        `json:"status"`
	StatusLabel     string              `json:"statusLabel"`
	CustomerName    string              `json:"customerName"`
	CustomerEmail   string              `json:"customerEmail"`
	CustomerPhone   string              `json:"customerPhone"`
	DeliveryAddress string              `json:"deliveryAddress"`
	Notes           string              `json:"notes,omitempty"`
	TotalItems      int                 `json:"totalItems"`
	Total           json.Number         `json:"totalAmount"`
	Items           []orderLineResponse `json:"items"`
	Cancellable     bool                `json:"cancellable"`
	CreatedAt       time.Time           `json:"createdAt"`
}

func newOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		Number:          o.Number,
		Status:          o.Status,
		StatusLabel:     o.Status.Label(),
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone,
		DeliveryAddress: o.DeliveryAddress,
		Notes:           o.Notes,
		TotalItems:      o.TotalItems(),
		Total:           money(o.Total),
		Items:           make([]orderLineResponse, 0, len(o.Lines)),
		Cancellable:     o.Cancellable(),
		CreatedAt:       o.CreatedAt,
	}
	for _, l := range o.Lines {
		resp.Items = append(resp.Items, orderLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Price:       money(l.Price),
			Total:       money(l.Total()),
		})
	}
	return resp
}

type checkoutInitialResponse struct {
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	DeliveryAddress string `json:"delivery_address"`
}

func newCheckoutInitial(req order.CheckoutRequest) checkoutInitialResponse {
	return checkoutInitialResponse{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
	}
}
