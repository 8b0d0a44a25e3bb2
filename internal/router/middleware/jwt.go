package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWTMaker struct {
	secretKey []byte
}

func NewJWTMaker(secretKey string) *JWTMaker {
	return &JWTMaker{secretKey: []byte(secretKey)}
}

func (maker *JWTMaker) CreateToken(publisher string, markets []string, duration time.Duration) (string, *PublisherClaims, error) {
	if len(maker.secretKey) == 0 {
		return "", nil, errors.New("jwt secret is not configured")
	}
	claims, err := NewPublisherClaims(publisher, markets, duration)
	if err != nil {
		return "", nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(maker.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("error signing token: %w", err)
	}
	return signed, claims, nil
}

func (maker *JWTMaker) VerifyToken(tokenStr string) (*PublisherClaims, error) {
	if len(maker.secretKey) == 0 {
		return nil, errors.New("jwt secret is not configured")
	}
	token, err := jwt.ParseWithClaims(tokenStr, &PublisherClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid token signing method")
		}
		return maker.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error parsing token: %w", err)
	}

	claims, ok := token.Claims.(*PublisherClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
