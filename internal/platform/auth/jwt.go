// Package auth authenticates callers from HS256 bearer tokens. The token
// subject is the numeric user id.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/comment-platform/internal/platform/api"
)

var ErrInvalidSubject = errors.New("token subject is not a user id")

type ctxKeyUserID struct{}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ctxKeyUserID{}).(int64)
	return v, ok && v > 0
}

// WithUserID injects the caller id into ctx. Useful for testing.
func WithUserID(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, uid)
}

type Claims struct {
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Subject), 10, 64)
	if err != nil || id < 1 {
		return 0, ErrInvalidSubject
	}
	return id, nil
}

type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Authenticate resolves a raw "Bearer <token>" header value to a user id.
func (v JWTVerifier) Authenticate(header string) (int64, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return 0, errors.New("missing bearer token")
	}
	claims, err := v.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, err
	}
	return claims.UserID()
}

// Issue signs a token for uid. Used by the seeder and tests.
func (v JWTVerifier) Issue(uid int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(uid, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.Secret)
}

// RequireUser middleware validates the Bearer token and injects the user id
// into context.
func RequireUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, err := verifier.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				api.Unauthorized(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}
