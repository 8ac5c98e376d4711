// Package auth issues and verifies guest session tokens. There is no
// account system; a token only pins a stable user id and display name to a
// browser so reconnects and stats attribution survive the socket.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTTL = 14 * 24 * time.Hour

var (
	ErrNoToken      = errors.New("no session token supplied")
	ErrInvalidToken = errors.New("invalid session token")
)

// Identity is the verified content of a session token.
type Identity struct {
	UserID string
	Name   string
}

// Sessions signs and parses guest tokens with a single HS256 secret.
type Sessions struct {
	secret []byte
	ttl    time.Duration
}

func NewSessions(secret string) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: defaultTTL}
}

// IssueGuestToken mints a token for a new guest identity and returns it with
// the generated user id.
func (s *Sessions) IssueGuestToken(name string) (token, userID string, err error) {
	userID = uuid.NewString()
	now := time.Now()
	claims := jwt.MapClaims{
		"id":   userID,
		"name": name,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return token, userID, err
}

// Parse verifies a token string and extracts the identity.
func (s *Sessions) Parse(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, ErrNoToken
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return Identity{}, ErrInvalidToken
	}
	name, _ := claims["name"].(string)
	return Identity{UserID: id, Name: name}, nil
}

// FromRequest pulls the token from the Authorization header or, for
// websocket upgrades where custom headers are awkward, the token query
// parameter.
func (s *Sessions) FromRequest(r *http.Request) (Identity, error) {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return s.Parse(strings.TrimSpace(a[7:]))
	}
	if q := r.URL.Query().Get("token"); q != "" {
		return s.Parse(q)
	}
	return Identity{}, ErrNoToken
}
