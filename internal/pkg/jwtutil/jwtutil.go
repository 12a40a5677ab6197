package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrExpired       = errors.New("token expired")
	ErrInvalid       = errors.New("invalid token")
	ErrWrongType     = errors.New("wrong token type")
	errUnexpectedAlg = errors.New("unexpected signing method")
)

type AccessClaims struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
	Type       string `json:"type"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserID uint   `json:"user_id"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// AccessSubject is the identity embedded in an access token.
type AccessSubject struct {
	UserID     uint
	Username   string
	Role       string
	IsVerified bool
}

func GenerateAccessToken(secret string, now time.Time, ttl time.Duration, sub AccessSubject) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := AccessClaims{
		UserID:     sub.UserID,
		Username:   sub.Username,
		Role:       sub.Role,
		IsVerified: sub.IsVerified,
		Type:       TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token failed: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// GenerateRefreshToken mints a refresh token with a random jti so that two
// tokens for the same user issued within one second never collide.
func GenerateRefreshToken(secret string, now time.Time, ttl time.Duration, userID uint) (string, time.Time, error) {
	claims := RefreshClaims{
		UserID: userID,
		Type:   TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token failed: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

func ParseAccessToken(secret, token string, now time.Time) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(secret, token, now, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, ErrWrongType
	}
	return claims, nil
}

func ParseRefreshToken(secret, token string, now time.Time) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(secret, token, now, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, ErrWrongType
	}
	return claims, nil
}

// parse treats a token as expired once now >= exp.
func parse(secret, token string, now time.Time, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errUnexpectedAlg
		}
		return []byte(secret), nil
	},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !parsed.Valid {
		return ErrInvalid
	}
	return nil
}
