// Package middleware holds the JWT bearer check shared by every HTTP
// surface.
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
)

type AuthMiddleware struct {
	accessSecret string
}

func NewAuthMiddleware(accessSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		accessSecret: accessSecret,
	}
}

// Wrap validates the bearer token and stores the caller identity in
// request headers. role is enforced when non-empty.
func (am *AuthMiddleware) Wrap(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			authError(w, http.StatusUnauthorized, fmt.Errorf("empty JWT token"))
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			return []byte(am.accessSecret), nil
		})
		if err != nil {
			authError(w, http.StatusUnauthorized, fmt.Errorf("failed to parse JWT token"))
			return
		}

		if !token.Valid {
			authError(w, http.StatusUnauthorized, fmt.Errorf("invalid JWT token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			authError(w, http.StatusUnauthorized, fmt.Errorf("invalid claims"))
			return
		}

		userId, ok := claims["user_id"].(string)
		if !ok {
			authError(w, http.StatusUnauthorized, fmt.Errorf("user id not found in token"))
			return
		}

		tokenRole, ok := claims["role"].(string)
		if !ok {
			authError(w, http.StatusUnauthorized, fmt.Errorf("role not found in token"))
			return
		}

		if role != "" && tokenRole != role {
			authError(w, http.StatusForbidden, fmt.Errorf("only %s allowed to use this endpoint", strings.ToLower(role)+"s"))
			return
		}

		r.Header.Set("X-UserId", userId)
		r.Header.Set("X-Role", tokenRole)

		next.ServeHTTP(w, r)
	})
}

func authError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": err.Error(),
		"code":    code,
	})
}
