package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/absolutastore/storefront-backend/pkg/logger"
)

// CartSessionHeader carries the cart session for clients that do not keep cookies.
const CartSessionHeader = "X-Cart-Session"

const maxSessionLength = 64

type CartSessionOptions struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// CartSession resolves the browser's cart session from the header or cookie and
// issues a new one when neither carries a usable value.
func CartSession(opts CartSessionOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	cookieName := strings.TrimSpace(opts.CookieName)
	if cookieName == "" {
		cookieName = "sf_cart"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := validSession(r.Header.Get(CartSessionHeader))
			if session == "" {
				if cookie, err := r.Cookie(cookieName); err == nil {
					session = validSession(cookie.Value)
				}
			}

			if session == "" {
				session = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    session,
					Path:     "/",
					MaxAge:   int(opts.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(CartSessionHeader, session)

			ctx := WithCartSession(r.Context(), session)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, session)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validSession accepts opaque ids of letters, digits, '-' and '_' only, so a
// session can never escape its storage namespace.
func validSession(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxSessionLength {
		return ""
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return ""
		}
	}
	return value
}
