package middleware

import (
	"net/http"
	"strings"

	"github.com/axonake/RANGERSTORE/internal/config"
	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/internal/handler/request"
	"github.com/axonake/RANGERSTORE/pkg/dto"
	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/dgrijalva/jwt-go"
)

// WithAuth validates the bearer token and passes the user id and role on
// as request headers. Browsers cannot set headers on a websocket upgrade,
// so the token is also accepted as the "token" query parameter.
func WithAuth(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(request.UserIDHeader)
			r.Header.Del(request.UserRoleHeader)

			for _, ignore := range cfg.AuthDisabledURLs {
				if strings.HasSuffix(r.URL.Path, ignore) {
					next.ServeHTTP(w, r)
					return
				}
			}

			tokenString, ok := bearerToken(r)
			if !ok {
				logger.Log.Warn("unauthorized request", logger.String("url", r.URL.Path))
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			var claims dto.Claims
			_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(cfg.PrivateKey), nil
			})
			if err != nil || claims.Subject == "" {
				logger.Log.Warn("unauthorized request", logger.String("url", r.URL.Path), logger.Error(err))
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			r.Header.Set(request.UserIDHeader, claims.Subject)
			r.Header.Set(request.UserRoleHeader, claims.Role)

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), true
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}

	return "", false
}

// WithAdmin must run after WithAuth.
func WithAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(request.UserRoleHeader) != domain.RoleAdmin {
			logger.Log.Warn("forbidden admin request", logger.String("url", r.URL.Path), logger.String("user_id", r.Header.Get(request.UserIDHeader)))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
