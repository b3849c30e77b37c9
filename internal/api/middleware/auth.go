package middleware

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vouchd/vouchd/internal/api/presenter"
)

const AdminRole = "admin"

// Role required per method class on the RBAC admin surface.
var methodRoles = map[string]string{
	http.MethodGet:    "rbac.read",
	http.MethodPost:   "rbac.create",
	http.MethodPut:    "rbac.update",
	http.MethodPatch:  "rbac.update",
	http.MethodDelete: "rbac.delete",
}

// RBACAuth gates the RBAC admin endpoints: the bearer token must be a
// vouchd-signed JWT carrying the role for the request's method class (or
// the admin role, which covers everything).
func RBACAuth(signingKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			required, ok := methodRoles[r.Method]
			if !ok {
				presenter.Error(w, r, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			requireRole(signingKey, required, next).ServeHTTP(w, r)
		})
	}
}

// AdminAuth gates the tasks and audit endpoints behind the admin role.
func AdminAuth(signingKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return requireRole(signingKey, AdminRole, next)
	}
}

func requireRole(signingKey []byte, required string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			presenter.Error(w, r, "login required", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return signingKey, nil
		})
		if err != nil || !token.Valid {
			presenter.Error(w, r, "invalid session token", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			presenter.Error(w, r, "invalid claims", http.StatusUnauthorized)
			return
		}
		roles, ok := claims["roles"].([]any)
		if !ok {
			presenter.Error(w, r, "invalid claims", http.StatusUnauthorized)
			return
		}

		for _, roleAny := range roles {
			if role, ok := roleAny.(string); ok && (role == required || role == AdminRole) {
				next.ServeHTTP(w, r)
				return
			}
		}
		presenter.Error(w, r, "insufficient privileges", http.StatusForbidden)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
