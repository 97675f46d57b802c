package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/healthcompanion/companion/internal/platform/httpx"
	"github.com/healthcompanion/companion/internal/shared"
)

// RequireBearer rejects requests without a valid bearer token and stores the
// token identity in the request context.
func RequireBearer(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.RespondError(w, shared.ErrTokenMissing)
				return
			}
			identity, err := tokens.Verify(raw)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// NewRateLimiter limits signup and signin calls per client IP.
func NewRateLimiter(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Message(w, http.StatusTooManyRequests, "Too many authentication attempts. Please try again later.")
		}),
	)
}
