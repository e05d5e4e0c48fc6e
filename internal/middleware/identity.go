package middleware

import (
	"net/http"
	"strings"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
)

// HeaderUserID carries the authenticated user id set by the gateway in front of
// the storefront.
const HeaderUserID = "X-User-Id"

const sessionMaxAge = 14 * 24 * 60 * 60

// Sessions reads and writes the anonymous session cookie.
type Sessions struct {
	CookieName string
	Secure     bool
}

// Identity stores the caller's cart.Identity in the request context.
func (s Sessions) Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := cart.Identity{UserID: strings.TrimSpace(r.Header.Get(HeaderUserID))}
		if c, err := r.Cookie(s.CookieName); err == nil {
			id.SessionToken = strings.TrimSpace(c.Value)
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Persist writes a newly minted session token back to the client.
func (s Sessions) Persist(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
