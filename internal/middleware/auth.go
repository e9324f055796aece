package middleware

import (
	"net/http"
	"strings"

	"github.com/splitfair/splitfair/internal/api/httpx"
	"github.com/splitfair/splitfair/internal/auth"
)

type AuthMiddleware struct {
	tm *auth.TokenManager
}

func NewAuthMiddleware(tm *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tm: tm}
}

// Auth verifies the bearer token once and stores the caller's identity in
// the request context. Handlers read it there and pass it into services
// explicitly; nothing downstream touches the token again.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(ah[len("Bearer "):])

		claims, err := m.tm.ParseAccess(token)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid access token", nil)
			return
		}
		ctx := auth.WithIdentity(r.Context(), auth.Identity{UserID: claims.UserID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
