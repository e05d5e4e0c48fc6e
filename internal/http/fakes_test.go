package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/contact"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

type fakeCarts struct {
	viewFunc    func(ctx context.Context, id cart.Identity) (cart.Resolution, error)
	addFunc     func(ctx context.Context, id cart.Identity, req cart.AddItemRequest) (cart.Result, error)
	setFunc     func(ctx context.Context, id cart.Identity, req cart.UpdateItemRequest) (cart.Result, error)
	removeFunc  func(ctx context.Context, id cart.Identity, lineID string) (cart.Result, error)
	clearFunc   func(ctx context.Context, id cart.Identity) (cart.Result, error)
	summaryFunc func(ctx context.Context, id cart.Identity) (cart.Summary, error)
}

func (f *fakeCarts) View(ctx context.Context, id cart.Identity) (cart.Resolution, error) {
	if f.viewFunc != nil {
		return f.viewFunc(ctx, id)
	}
	return cart.Resolution{Cart: &cart.Cart{ID: "cart-1"}}, nil
}

func (f *fakeCarts) AddItem(ctx context.Context, id cart.Identity, req cart.AddItemRequest) (cart.Result, error) {
	if f.addFunc != nil {
		return f.addFunc(ctx, id, req)
	}
	return cart.Result{}, nil
}

func (f *fakeCarts) SetItemQuantity(ctx context.Context, id cart.Identity, req cart.UpdateItemRequest) (cart.Result, error) {
	if f.setFunc != nil {
		return f.setFunc(ctx, id, req)
	}
	return cart.Result{}, nil
}

func (f *fakeCarts) RemoveItem(ctx context.Context, id cart.Identity, lineID string) (cart.Result, error) {
	if f.removeFunc != nil {
		return f.removeFunc(ctx, id, lineID)
	}
	return cart.Result{}, nil
}

func (f *fakeCarts) Clear(ctx context.Context, id cart.Identity) (cart.Result, error) {
	if f.clearFunc != nil {
		return f.clearFunc(ctx, id)
	}
	return cart.Result{}, nil
}

func (f *fakeCarts) Summary(ctx context.Context, id cart.Identity) (cart.Summary, error) {
	if f.summaryFunc != nil {
		return f.summaryFunc(ctx, id)
	}
	return cart.Summary{}, nil
}

type fakeOrders struct {
	precheckFunc func(ctx context.Context, id cart.Identity) (cart.Resolution, error)
	defaultsFunc func(ctx context.Context, id cart.Identity) (order.CheckoutRequest, error)
	placeFunc    func(ctx context.Context, id cart.Identity, req order.CheckoutRequest) (*order.Order, error)
	listFunc     func(ctx context.Context, id cart.Identity) ([]order.Order, error)
	getFunc      func(ctx context.Context, id cart.Identity, number string) (*order.Order, error)
	cancelFunc   func(ctx context.Context, id cart.Identity, number string) (*order.Order, error)
}

func (f *fakeOrders) Precheck(ctx context.Context, id cart.Identity) (cart.Resolution, error) {
	if f.precheckFunc != nil {
		return f.precheckFunc(ctx, id)
	}
	return cart.Resolution{Cart: &cart.Cart{}}, nil
}

func (f *fakeOrders) CheckoutDefaults(ctx context.Context, id cart.Identity) (order.CheckoutRequest, error) {
	if f.defaultsFunc != nil {
		return f.defaultsFunc(ctx, id)
	}
	return order.CheckoutRequest{}, nil
}

func (f *fakeOrders) PlaceOrder(ctx context.Context, id cart.Identity, req order.CheckoutRequest) (*order.Order, error) {
	if f.placeFunc != nil {
		return f.placeFunc(ctx, id, req)
	}
	return nil, order.ErrEmptyCart
}

func (f *fakeOrders) ListOrders(ctx context.Context, id cart.Identity) ([]order.Order, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, id)
	}
	return nil, nil
}

func (f *fakeOrders) GetOrder(ctx context.Context, id cart.Identity, number string) (*order.Order, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, id, number)
	}
	return nil, order.ErrNotFound
}

func (f *fakeOrders) CancelOrder(ctx context.Context, id cart.Identity, number string) (*order.Order, error) {
	if f.cancelFunc != nil {
		return f.cancelFunc(ctx, id, number)
	}
	return nil, order.ErrNotFound
}

type fakeContact struct {
	submitFunc func(ctx context.Context, req contact.Request) error
}

func (f *fakeContact) Submit(ctx context.Context, req contact.Request) error {
	if f.submitFunc != nil {
		return f.submitFunc(ctx, req)
	}
	return nil
}

type fakeCatalog struct {
	catalog.Repository
	listFunc     func(ctx context.Context, f catalog.Filter) ([]catalog.Product, error)
	bySlugFunc   func(ctx context.Context, slug string) (catalog.Product, error)
	relatedFunc  func(ctx context.Context, p catalog.Product) ([]catalog.Product, error)
	categoryFunc func(ctx context.Context, slug string) (catalog.Category, error)
}

func (f *fakeCatalog) ListCategories(context.Context) ([]catalog.Category, error) {
	return nil, nil
}

func (f *fakeCatalog) GetCategoryBySlug(ctx context.Context, slug string) (catalog.Category, error) {
	if f.categoryFunc != nil {
		return f.categoryFunc(ctx, slug)
	}
	return catalog.Category{}, catalog.ErrNotFound
}

func (f *fakeCatalog) ListProducts(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, filter)
	}
	return nil, nil
}

func (f *fakeCatalog) GetProductBySlug(ctx context.Context, slug string) (catalog.Product, error) {
	if f.bySlugFunc != nil {
		return f.bySlugFunc(ctx, slug)
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (f *fakeCatalog) RelatedProducts(ctx context.Context, p catalog.Product) ([]catalog.Product, error) {
	if f.relatedFunc != nil {
		return f.relatedFunc(ctx, p)
	}
	return nil, nil
}

type testDeps struct {
	carts   *fakeCarts
	orders  *fakeOrders
	contact *fakeContact
	catalog *fakeCatalog
}

func newTestRouter() (http.Handler, *testDeps) {
	d := &testDeps{carts: &fakeCarts{}, orders: &fakeOrders{}, contact: &fakeContact{}, catalog: &fakeCatalog{}}
	h := NewRouter(Deps{
		Catalog:  d.catalog,
		Carts:    d.carts,
		Orders:   d.orders,
		Contact:  d.contact,
		Sessions: middleware.Sessions{CookieName: "sessionid"},
	})
	return h, d
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}
