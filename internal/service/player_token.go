package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// PlayerClaims привязывает токен к игроку в конкретной комнате
type PlayerClaims struct {
	Room string `json:"room"`
	jwt.RegisteredClaims
}

func (c PlayerClaims) PlayerID() string { return c.Subject }

type PlayerTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewPlayerTokens(secret string, ttl time.Duration) *PlayerTokens {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &PlayerTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *PlayerTokens) Issue(roomCode, playerID string) (string, error) {
	now := t.now()
	claims := PlayerClaims{
		Room: roomCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *PlayerTokens) Parse(token string) (PlayerClaims, error) {
	var claims PlayerClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return PlayerClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.Room == "" {
		return PlayerClaims{}, ErrInvalidToken
	}
	return claims, nil
}
