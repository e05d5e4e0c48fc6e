package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/validation"
)

type OrderService interface {
	Precheck(ctx context.Context, id cart.Identity) (cart.Resolution, error)
	CheckoutDefaults(ctx context.Context, id cart.Identity) (order.CheckoutRequest, error)
	PlaceOrder(ctx context.Context, id cart.Identity, req order.CheckoutRequest) (*order.Order, error)
	ListOrders(ctx context.Context, id cart.Identity) ([]order.Order, error)
	GetOrder(ctx context.Context, id cart.Identity, number string) (*order.Order, error)
	CancelOrder(ctx context.Context, id cart.Identity, number string) (*order.Order, error)
}

const loginPath = "/accounts/login"

func loginRedirect(next string) string {
	return loginPath + "?next=" + url.QueryEscape(next)
}

// CheckoutForm reports what the checkout page needs, or where to go instead.
func (h *Handler) CheckoutForm(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())
	res, err := h.orders.Precheck(r.Context(), id)
	h.persistSession(w, res)
	if err != nil {
		h.writeOrderError(w, r, err, "/checkout")
		return
	}

	initial, err := h.orders.CheckoutDefaults(r.Context(), id)
	if err != nil {
		h.logger.Warn("checkout defaults unavailable", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cart":    newCartResponse(res.Cart),
		"initial": newCheckoutInitial(initial),
	})
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())
	res, err := h.orders.Precheck(r.Context(), id)
	h.persistSession(w, res)
	if err != nil {
		h.writeOrderError(w, r, err, "/checkout")
		return
	}

	var req order.CheckoutRequest
	err = decodeJSONOrForm(r, &req, func(get func(string) string) {
		req = order.CheckoutRequest{
			CustomerName:    get("customer_name"),
			CustomerEmail:   get("customer_email"),
			CustomerPhone:   get("customer_phone"),
			DeliveryAddress: get("delivery_address"),
			Notes:           get("notes"),
		}
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), id, req)
	if err != nil {
		h.writeOrderError(w, r, err, "/checkout")
		return
	}

	location := "/orders/" + url.PathEscape(o.Number)
	if wantsJSON(r) {
		w.Header().Set("Location", location)
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"message": "Your order " + o.Number + " has been placed successfully!",
			"order":   newOrderResponse(o),
		})
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeOrderError(w, r, err, "/orders")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": resp})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	o, err := h.orders.GetOrder(r.Context(), middleware.GetIdentity(r.Context()), number)
	if err != nil {
		h.writeOrderError(w, r, err, "/orders/"+number)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	o, err := h.orders.CancelOrder(r.Context(), middleware.GetIdentity(r.Context()), number)
	if err != nil {
		h.writeOrderError(w, r, err, "/orders/"+number)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Order " + o.Number + " has been cancelled.",
			"order":   newOrderResponse(o),
		})
		return
	}
	http.Redirect(w, r, "/orders/"+url.PathEscape(o.Number), http.StatusSeeOther)
}

// writeOrderError turns checkout preconditions into redirects for browsers and
// into 409/401 with a redirect hint for JSON callers.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error, next string) {
	if verr, ok := validation.As(err); ok {
		writeValidation(w, verr)
		return
	}

	switch {
	case errors.Is(err, order.ErrEmptyCart):
		h.redirectOrJSON(w, r, http.StatusConflict, "Your cart is empty.", cartPath)
	case errors.Is(err, order.ErrUnauthenticated):
		h.redirectOrJSON(w, r, http.StatusUnauthorized, "Please log in to continue.", loginRedirect(next))
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrNotCancellable):
		writeError(w, http.StatusConflict, "This order cannot be cancelled.")
	case errors.Is(err, cart.ErrConflict):
		h.writeInternal(w, r, "checkout failed", err)
	default:
		h.writeInternal(w, r, "order request failed", err)
	}
}

func (h *Handler) redirectOrJSON(w http.ResponseWriter, r *http.Request, status int, msg, location string) {
	if wantsJSON(r) {
		writeJSON(w, status, map[string]string{"error": msg, "redirect": location})
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
