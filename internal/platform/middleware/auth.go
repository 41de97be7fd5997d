package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "ysvs/pkg/domain"
	"ysvs/pkg/requestcontext"
)

// Claims are the JWT claims the auth collaborator issues. The core trusts
// the identity and role as given; token minting lives outside this service.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAuth validates the bearer token and injects the authenticated user ID
// and role into the request context. Requests without a valid token are
// rejected with 401 before reaching handlers.
func RequireAuth(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			claims := &Claims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(signingKey), nil
			})
			if err != nil || !parsed.Valid {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			userID, err := id.ParseUserID(claims.Subject)
			if err != nil || userID.IsNil() {
				logger.WarnContext(ctx, "unauthorized access - malformed subject",
					"request_id", requestID,
				)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			if claims.Role == string(requestcontext.RoleAdmin) {
				ctx = requestcontext.WithRole(ctx, requestcontext.RoleAdmin)
			} else {
				ctx = requestcontext.WithRole(ctx, requestcontext.RoleMember)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
