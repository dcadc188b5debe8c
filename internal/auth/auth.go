// Package auth mints and verifies the guest tokens that tie a websocket
// connection to a user identity. Tokens are HS256 JWTs carrying the user
// id and display name.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/xylophonehero/hearts/internal/models"
)

var (
	secret []byte

	// ErrNotInitialized is returned when tokens are used before Init.
	ErrNotInitialized = errors.New("auth: secret not initialized")
	// ErrInvalidToken is returned for any token that fails verification.
	ErrInvalidToken = errors.New("auth: invalid token")
)

const tokenTTL = 24 * time.Hour

// Init sets the signing secret. Must be called before any token work.
func Init(s string) {
	secret = []byte(s)
}

type claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// NewUser mints a fresh user identity for a guest login.
func NewUser(name string) models.User {
	return models.User{ID: uuid.NewString(), Name: name}
}

// CreateToken signs a token for the given user.
func CreateToken(user models.User) (string, error) {
	if len(secret) == 0 {
		return "", ErrNotInitialized
	}
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature and expiry and returns the embedded user.
func VerifyToken(token string) (models.User, error) {
	if len(secret) == 0 {
		return models.User{}, ErrNotInitialized
	}
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return models.User{}, ErrInvalidToken
	}
	if c.Subject == "" {
		return models.User{}, ErrInvalidToken
	}
	return models.User{ID: c.Subject, Name: c.Name}, nil
}
