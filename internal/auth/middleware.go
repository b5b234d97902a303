// Package auth validates access tokens issued by the external auth service.
// Tokens are HMAC-signed JWTs carried in the "token" cookie or an
// Authorization: Bearer header.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"school-service/common/httputil"
	"school-service/common/logger"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	// SubjectKey is the context key for the token subject
	SubjectKey contextKey = "subject"
	RoleKey    contextKey = "role"
)

type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var ErrNoToken = errors.New("no access token")

// Validator checks token signatures against one shared secret.
type Validator struct {
	secret []byte
}

func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

func (v *Validator) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func tokenFromRequest(r *http.Request) (string, error) {
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", errors.New("invalid Authorization header format")
	}
	return parts[1], nil
}

// Middleware rejects requests without a valid token and puts the token's
// subject and role into the request context.
func Middleware(v *Validator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := tokenFromRequest(r)
			if err != nil {
				log.WarnContext(r.Context(), "no usable access token", "path", r.URL.Path, "error", err)
				httputil.RespondWithErrorKind(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}

			claims, err := v.ValidateAccessToken(tokenString)
			if err != nil {
				log.WarnContext(r.Context(), "invalid token", "error", err)
				httputil.RespondWithErrorKind(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), SubjectKey, claims.Subject)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			ctx = logger.WithAttrs(ctx, slog.String("subject", claims.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject extracts the token subject from context
func GetSubject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	return subject, ok
}

func GetRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}
