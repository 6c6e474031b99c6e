package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hospms/apiserver/internal/services"
	"github.com/hospms/apiserver/internal/token"
	"github.com/hospms/apiserver/types"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

// claimsFromContext returns the verified token claims injected by
// RequireAuth. Absence means the handler is mounted outside the
// middleware, which is a wiring bug.
func claimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(*token.Claims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(value) == "" {
		return "", errors.New("malformed authorization header")
	}
	return strings.TrimSpace(value), nil
}

// RequireAuth verifies the bearer token and injects its claims into the
// request context. Missing, expired, and malformed tokens each get
// their own code so clients can distinguish re-login from rejection.
func RequireAuth(issuer *token.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, codeNoToken, "authentication token required")
				return
			}

			claims, err := issuer.Verify(tokenString)
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					writeError(w, http.StatusUnauthorized, codeTokenExpired, "authentication token expired")
					return
				}
				writeError(w, http.StatusUnauthorized, codeInvalidToken, "invalid authentication token")
				return
			}

			ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles rejects callers whose role is not in the allowed set.
// The response names both sets so a misassigned account is debuggable
// from the client alone.
func RequireRoles(allowed ...types.Role) func(http.Handler) http.Handler {
	names := make([]string, 0, len(allowed))
	for _, role := range allowed {
		names = append(names, string(role))
	}
	allowedList := strings.Join(names, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, codeNotAuthenticated, "not authenticated")
				return
			}
			for _, role := range allowed {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			message := fmt.Sprintf("requires role %s, have %s", allowedList, claims.Role)
			writeError(w, http.StatusForbidden, codeInsufficientPermissions, message)
		})
	}
}

// VerifyUserStatus re-reads the account behind the token so that
// deactivation takes effect before the token expires.
func VerifyUserStatus(users *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, codeNotAuthenticated, "not authenticated")
				return
			}
			if err := users.CheckStatus(r.Context(), claims.Subject); err != nil {
				switch {
				case errors.Is(err, services.ErrAccountDeactivated):
					writeError(w, http.StatusForbidden, codeAccountDeactivated, "account is deactivated")
				case errors.Is(err, services.ErrVerificationRequired):
					writeError(w, http.StatusForbidden, codeEmailNotVerified, "email not verified")
				case errors.Is(err, services.ErrUserNotFound):
					writeError(w, http.StatusNotFound, codeUserNotFound, "user not found")
				default:
					writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
