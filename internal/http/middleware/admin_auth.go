package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// Staff roles allowed on the admin API.
const (
	RoleAdmin      = "admin"
	RolePharmacist = "pharmacist"
)

// AdminClaims identifies the pharmacy staff member behind an admin request.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (c AdminClaims) hasStaffRole() bool {
	switch strings.ToLower(strings.TrimSpace(c.Role)) {
	case RoleAdmin, RolePharmacist:
		return true
	}
	return false
}

// AdminJWT requires an HMAC-signed, expiring JWT whose subject names a staff
// member with the admin or pharmacist role. An empty secret disables the
// admin surface entirely.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	)
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				adminAuthError(w, "admin auth disabled", http.StatusUnauthorized)
				return
			}
			tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				adminAuthError(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			var claims AdminClaims
			token, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), &claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
				adminAuthError(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if !claims.hasStaffRole() {
				adminAuthError(w, "staff role required", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminClaimsFromContext returns the claims AdminJWT accepted.
func AdminClaimsFromContext(ctx context.Context) (AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(AdminClaims)
	return claims, ok
}

func adminAuthError(w http.ResponseWriter, msg string, status int) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="pharmastic-admin"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
