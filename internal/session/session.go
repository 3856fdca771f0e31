// Package session holds the caller identity that travels with every backend
// request. A Session is an explicit value: handlers take it out of the request
// context once and hand it to services as an argument.
package session

import (
	"context"
	"cpulse-tracker/internal/domain"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Session struct {
	Token     string
	Subject   string
	ExpiresAt time.Time
	User      *domain.User
}

// Anonymous carries no token; the API client sends no Authorization header for it.
var Anonymous = Session{}

func (s Session) HasToken() bool {
	return s.Token != ""
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// TokenHash is the hex SHA-256 of the bearer token, or "" for Anonymous.
// Tokens are stored and compared only in this form.
func (s Session) TokenHash() string {
	if s.Token == "" {
		return ""
	}
	return HashToken(s.Token)
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s Session) AuthorizationHeader() string {
	if s.Token == "" {
		return ""
	}
	return "Bearer " + s.Token
}

// FromBearer builds a session from an incoming Authorization header. Anything
// that is not a bearer credential yields Anonymous. Claims are read without
// verification: the backend owns the signing key and remains the authority,
// this only lets us skip requests with a token that has already expired.
func FromBearer(header string) Session {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return Anonymous
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Anonymous
	}

	sess := Session{Token: token}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return sess
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		sess.ExpiresAt = exp.Time
	}
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		sess.Subject = sub
	}
	if sess.Subject == "" {
		if claims, ok := parsed.Claims.(jwt.MapClaims); ok {
			if id, ok := claims["id"].(string); ok {
				sess.Subject = id
			}
		}
	}
	return sess
}

type contextKey struct{}

func WithContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(contextKey{}).(Session); ok {
		return s
	}
	return Anonymous
}
