package middleware

import (
	"errors"
	"net/http"
	"strings"

	"monopay-be/internal/logger"
	"monopay-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const AccessTokenCookie = "access_token"

// RequireAuth accepts an HS256 access token carrying a numeric user_id claim
// and stores the caller in the request context. Anything else is a 401.
func RequireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractAccessToken(r)
			if tokenStr == "" {
				utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			userID, role, err := parseAccessToken(tokenStr, secret)
			if err != nil {
				logger.FromCtx(r.Context()).Debug("Rejected access token", zap.Error(err))
				utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := utils.SetUserContext(r.Context(), userID, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractAccessToken prefers the cookie and falls back to a bearer header.
func extractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

func parseAccessToken(tokenStr string, secret []byte) (uint, string, error) {
	if len(secret) == 0 {
		return 0, "", errors.New("jwt secret is not configured")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, "", err
	}
	if !token.Valid {
		return 0, "", errors.New("invalid token")
	}

	uid, ok := claims["user_id"].(float64)
	if !ok || uid <= 0 {
		return 0, "", errors.New("token has no user_id")
	}
	role, _ := claims["role"].(string)

	return uint(uid), role, nil
}
