package middleware

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PublisherClaims identify a feed publisher allowed to push book data.
type PublisherClaims struct {
	Markets []string `json:"markets,omitempty"` // empty allows every market
	jwt.RegisteredClaims
}

func NewPublisherClaims(publisher string, markets []string, duration time.Duration) (*PublisherClaims, error) {
	tokenID := uuid.NewString()
	return &PublisherClaims{
		Markets: markets,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   publisher,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
		},
	}, nil
}

func (c *PublisherClaims) AllowsMarket(symbol string) bool {
	return len(c.Markets) == 0 || slices.Contains(c.Markets, symbol)
}
