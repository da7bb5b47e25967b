package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultCookieName = "vanconnect_tab"
	DefaultIssuer     = "vanconnect"
)

type Claims struct {
	Values map[string]string `json:"vals"`
	jwt.RegisteredClaims
}

func NewRandomSecretB64(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeSecret accepts a base64url secret and falls back to the raw bytes.
// Short secrets are zero-padded to 16 bytes.
func DecodeSecret(text string) []byte {
	raw, err := base64.RawURLEncoding.DecodeString(text)
	if err != nil {
		raw = []byte(text)
	}
	if len(raw) < 16 {
		pad := make([]byte, 16)
		copy(pad, raw)
		raw = pad
	}
	return raw
}

// SignHS256 signs values. A zero ttl produces a token without expiry.
func SignHS256(secret []byte, values map[string]string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Values: values,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   DefaultIssuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}

func ParseHS256(secret []byte, tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithLeeway(30*time.Second), jwt.WithIssuer(DefaultIssuer))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Values == nil {
		claims.Values = map[string]string{}
	}
	return claims, nil
}
