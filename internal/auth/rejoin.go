// Package auth issues rejoin tokens: short-lived credentials that let a
// client reclaim its membership slot after a transient disconnect without
// relying on display-name equality.
package auth

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RejoinClaims represents the claims carried by a rejoin token.
type RejoinClaims struct {
	RoomID string `json:"room_id"`
	ConnID string `json:"conn_id"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// RejoinConfig holds token configuration.
type RejoinConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// RejoinService mints and validates rejoin tokens. It satisfies
// core.RejoinTokens.
type RejoinService struct {
	cfg RejoinConfig
}

// NewRejoinService constructs a token service. An empty secret is replaced by
// a random per-process one: rooms are volatile, so tokens never need to
// outlive the process anyway.
func NewRejoinService(cfg RejoinConfig) (*RejoinService, error) {
	if len(cfg.Secret) == 0 {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate rejoin secret: %w", err)
		}
		cfg.Secret = secret
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "driftchat"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &RejoinService{cfg: cfg}, nil
}

// Mint creates a token binding the connection to its room and display name.
func (s *RejoinService) Mint(roomID, connID, name string) (string, error) {
	now := time.Now()
	claims := RejoinClaims{
		RoomID: roomID,
		ConnID: connID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.Secret)
}

// Verify parses and validates a token, returning the room and connection it
// was minted for.
func (s *RejoinService) Verify(tokenString string) (string, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RejoinClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.Secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*RejoinClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("invalid token claims")
	}
	if claims.Issuer != s.cfg.Issuer {
		return "", "", fmt.Errorf("invalid issuer")
	}

	return claims.RoomID, claims.ConnID, nil
}
