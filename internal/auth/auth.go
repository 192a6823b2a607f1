// Package auth verifies session tokens and carries the signed-in user
// through request contexts. Tokens are HS256 JWTs with a user_id claim.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNotAuthenticated = errors.New("user not authenticated")

type ctxKey string

const sessionKey ctxKey = "session"

// Session is the authenticated identity extracted from a token.
type Session struct {
	UserID string
	Email  string
}

// Verifier parses and validates bearer tokens.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// IssueToken signs a session token. Used by the local-mode login flow and
// by tests; the hosted service issues its own tokens with the same secret.
func (v *Verifier) IssueToken(userID, email string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates the signature and expiry and returns the session.
func (v *Verifier) ParseToken(tokenStr string) (Session, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Session{}, ErrNotAuthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrNotAuthenticated
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Session{}, ErrNotAuthenticated
	}

	email, _ := claims["email"].(string)
	return Session{UserID: userID, Email: email}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// session in the request context.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			http.Error(w, "missing auth token", http.StatusUnauthorized)
			return
		}

		session, err := v.ParseToken(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromContext(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(sessionKey).(Session)
	if !ok || s.UserID == "" {
		return Session{}, ErrNotAuthenticated
	}
	return s, nil
}
