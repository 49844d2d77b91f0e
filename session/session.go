package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid session token")

// claims binds a player id to the room it was issued for.
type claims struct {
	Room   string `json:"room"`
	Player string `json:"player"`
	jwt.RegisteredClaims
}

// Manager issues and verifies session tokens. A token lets a reconnecting
// client reclaim its player slot.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for playerID in room.
func (m *Manager) Issue(room, playerID string) (string, error) {
	now := m.now()
	c := claims{
		Room:   room,
		Player: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

// Verify returns the player id carried by token, provided it was issued for room.
func (m *Manager) Verify(token, room string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Room != room || c.Player == "" {
		return "", ErrInvalidToken
	}
	return c.Player, nil
}
