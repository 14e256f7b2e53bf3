package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
)

const (
	CartSessionHeader  = "X-Cart-Session"
	guestSessionPrefix = "guest_"
)

var cartSessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// CartSession resolves the guest cart session from the X-Cart-Session header
// or the session cookie. When neither carries a usable value a new
// guest_<uuid> id is minted, set as a cookie and echoed in the header.
func CartSession(cfg config.CartConfig, secureCookie bool, logg *logger.Logger) func(http.Handler) http.Handler {
	cookieName := cfg.SessionCookie
	if cookieName == "" {
		cookieName = "cart_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(CartSessionHeader))
			if sessionID == "" {
				if cookie, err := r.Cookie(cookieName); err == nil {
					sessionID = strings.TrimSpace(cookie.Value)
				}
			}
			if !cartSessionPattern.MatchString(sessionID) {
				sessionID = guestSessionPrefix + uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(cfg.SessionTTL.Seconds()),
					HttpOnly: true,
					Secure:   secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(CartSessionHeader, sessionID)

			ctx := WithCartSession(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
