package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/validation"
)

type CartService interface {
	View(ctx context.Context, id cart.Identity) (cart.Resolution, error)
	AddItem(ctx context.Context, id cart.Identity, req cart.AddItemRequest) (cart.Result, error)
	SetItemQuantity(ctx context.Context, id cart.Identity, req cart.UpdateItemRequest) (cart.Result, error)
	RemoveItem(ctx context.Context, id cart.Identity, lineID string) (cart.Result, error)
	Clear(ctx context.Context, id cart.Identity) (cart.Result, error)
	Summary(ctx context.Context, id cart.Identity) (cart.Summary, error)
}

const cartPath = "/cart"

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.carts.View(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	h.persistSession(w, res)
	writeJSON(w, http.StatusOK, newCartResponse(res.Cart))
}

// CartCount never creates a cart.
func (h *Handler) CartCount(w http.ResponseWriter, r *http.Request) {
	sum, err := h.carts.Summary(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(sum))
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	req, err := cart.NewAddItemRequest(chi.URLParam(r, "productId"), quantityParam(r))
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}

	res, err := h.carts.AddItem(r.Context(), middleware.GetIdentity(r.Context()), req)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}

	fallback := cartPath
	if res.Line != nil && res.Line.ProductSlug != "" {
		fallback = "/products/" + res.Line.ProductSlug
	}
	h.respondMutation(w, r, res, fallback, true)
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	req, err := cart.NewUpdateItemRequest(chi.URLParam(r, "lineId"), quantityParam(r))
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}

	res, err := h.carts.SetItemQuantity(r.Context(), middleware.GetIdentity(r.Context()), req)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	h.respondMutation(w, r, res, cartPath, false)
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.carts.RemoveItem(r.Context(), middleware.GetIdentity(r.Context()), chi.URLParam(r, "lineId"))
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	h.respondMutation(w, r, res, cartPath, false)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.carts.Clear(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	h.respondMutation(w, r, res, cartPath, false)
}

// respondMutation answers XHR callers with the JSON summary and everyone else
// with a redirect. Only add follows next/referer; the rest return to the cart.
func (h *Handler) respondMutation(w http.ResponseWriter, r *http.Request, res cart.Result, fallback string, followBack bool) {
	h.persistSession(w, res.Resolution)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, newMutationResponse(res))
		return
	}
	if followBack {
		redirectBack(w, r, fallback)
		return
	}
	http.Redirect(w, r, fallback, http.StatusSeeOther)
}

func (h *Handler) persistSession(w http.ResponseWriter, res cart.Resolution) {
	if res.Minted && res.SessionToken != "" {
		h.sessions.Persist(w, res.SessionToken)
	}
}

func (h *Handler) writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	if verr, ok := validation.As(err); ok {
		writeValidation(w, verr)
		return
	}
	switch {
	case errors.Is(err, cart.ErrProductUnavailable):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, cart.ErrLineNotFound):
		writeError(w, http.StatusNotFound, "cart item not found")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request timed out")
	default:
		h.writeInternal(w, r, "cart request failed", err)
	}
}

// quantityParam reads "quantity" from a form post or a JSON body.
func quantityParam(r *http.Request) string {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Quantity json.RawMessage `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Quantity) == 0 {
			return ""
		}
		return strings.Trim(string(body.Quantity), `"`)
	}
	return r.FormValue("quantity")
}
