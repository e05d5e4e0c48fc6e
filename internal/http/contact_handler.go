package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/contact"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/validation"
)

type ContactService interface {
	Submit(ctx context.Context, req contact.Request) error
}

const contactSuccessPath = "/contact/success"

func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	var req contact.Request
	err := decodeJSONOrForm(r, &req, func(get func(string) string) {
		req = contact.Request{
			Name:    get("name"),
			Email:   get("email"),
			Phone:   get("phone"),
			Subject: contact.Subject(get("subject")),
			Message: get("message"),
		}
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.contact.Submit(r.Context(), req); err != nil {
		if verr, ok := validation.As(err); ok {
			writeValidation(w, verr)
			return
		}
		if errors.Is(err, contact.ErrDelivery) {
			writeError(w, http.StatusBadGateway,
				"Sorry, there was an issue sending your message. Please try again or contact us directly.")
			return
		}
		h.writeInternal(w, r, "contact request failed", err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Thank you for contacting us. We will get back to you soon.",
		})
		return
	}
	http.Redirect(w, r, contactSuccessPath, http.StatusSeeOther)
}
