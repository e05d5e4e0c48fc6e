package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

type Deps struct {
	Catalog  catalog.Repository
	Carts    CartService
	Orders   OrderService
	Contact  ContactService
	Sessions middleware.Sessions
	Logger   *zap.Logger

	CORSAllowOrigins []string
	RequestTimeout   time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 10 * time.Second
	}
	logger := d.Logger.Named("http")

	h := &Handler{
		catalog:  d.Catalog,
		carts:    d.Carts,
		orders:   d.Orders,
		contact:  d.Contact,
		sessions: d.Sessions,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(d.CORSAllowOrigins))
	r.Use(chimw.Timeout(d.RequestTimeout))
	r.Use(d.Sessions.Identity)

	r.Get("/health", h.Health)

	r.Get("/products", h.ListProducts)
	r.Get("/products/{slug}", h.GetProduct)
	r.Get("/categories", h.ListCategories)
	r.Get("/categories/{slug}", h.GetCategory)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Get("/count", h.CartCount)
		r.Post("/add/{productId}", h.AddToCart)
		r.Post("/update/{lineId}", h.UpdateCartItem)
		r.Post("/remove/{lineId}", h.RemoveFromCart)
		r.Post("/clear", h.ClearCart)
	})

	r.Get("/checkout", h.CheckoutForm)
	r.Post("/checkout", h.Checkout)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/{number}", h.GetOrder)
		r.Post("/{number}/cancel", h.CancelOrder)
	})

	r.Post("/contact", h.Contact)

	return r
}

type Handler struct {
	catalog  catalog.Repository
	carts    CartService
	orders   OrderService
	contact  ContactService
	sessions middleware.Sessions
	logger   *zap.Logger
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "storefront",
	})
}
