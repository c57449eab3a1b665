package httputil

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/medflow/medflow-timesheet/pkg/actor"
	"github.com/medflow/medflow-timesheet/pkg/config"
	"github.com/medflow/medflow-timesheet/pkg/errors"
	"github.com/medflow/medflow-timesheet/pkg/logger"
)

// Claims are the access token claims issued by the auth service
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// ValidateAccessToken parses an HS256 access token and returns its claims
func ValidateAccessToken(cfg *config.JWTConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.TokenInvalid()
		}
		return []byte(cfg.Secret), nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.TokenInvalid()
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}

	return claims, nil
}

// Identity resolves the caller and attaches an actor.Actor to the request context.
//
// Behind the API gateway the user arrives as X-User-ID / X-User-Email / X-User-Role
// headers. Direct callers present a Bearer token which is validated here.
// /health is served without identity.
func Identity(cfg *config.JWTConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			var a *actor.Actor

			if userID := r.Header.Get("X-User-ID"); userID != "" {
				a = &actor.Actor{
					ID:       userID,
					Email:    r.Header.Get("X-User-Email"),
					RoleName: r.Header.Get("X-User-Role"),
				}
			} else {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					Error(w, errors.Unauthorized("missing authorization header"))
					return
				}

				parts := strings.Split(authHeader, " ")
				if len(parts) != 2 || parts[0] != "Bearer" {
					Error(w, errors.Unauthorized("invalid authorization header format"))
					return
				}

				claims, err := ValidateAccessToken(cfg, parts[1])
				if err != nil {
					log.Debug().Err(err).Msg("token validation failed")
					Error(w, err)
					return
				}

				a = &actor.Actor{
					ID:       claims.UserID,
					Email:    claims.Email,
					Name:     claims.Name,
					RoleName: claims.Role,
				}
			}

			if rw, ok := w.(*responseWriter); ok {
				rw.actor = a
			}

			next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), a)))
		})
	}
}
