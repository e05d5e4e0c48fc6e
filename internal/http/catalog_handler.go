package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Query:        q.Get("q"),
		CategorySlug: q.Get("category"),
		Sort:         q.Get("sort"),
	}

	products, err := h.catalog.ListProducts(r.Context(), f)
	if err != nil {
		h.writeInternal(w, r, "failed to list products", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"products": newProductsResponse(products),
		"count":    len(products),
		"query":    f.Query,
		"category": f.CategorySlug,
		"sort":     f.Sort,
	})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.writeInternal(w, r, "failed to load product", err)
		return
	}

	related, err := h.catalog.RelatedProducts(r.Context(), p)
	if err != nil {
		h.writeInternal(w, r, "failed to load related products", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"product": newProductResponse(p),
		"related": newProductsResponse(related),
	})
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.writeInternal(w, r, "failed to list categories", err)
		return
	}
	if categories == nil {
		categories = []catalog.Category{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalog.GetCategoryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		h.writeInternal(w, r, "failed to load category", err)
		return
	}

	products, err := h.catalog.ListProducts(r.Context(), catalog.Filter{
		CategorySlug: c.Slug,
		Sort:         r.URL.Query().Get("sort"),
	})
	if err != nil {
		h.writeInternal(w, r, "failed to list products", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"category": c,
		"products": newProductsResponse(products),
	})
}
