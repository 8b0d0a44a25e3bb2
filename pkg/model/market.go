package model

import (
	"fmt"
	"strings"
)

type Token struct {
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
}

// Market is a base/quote pair, e.g. WETH-USDC.
type Market struct {
	Symbol        string `json:"symbol"`
	Base          Token  `json:"base"`
	Quote         Token  `json:"quote"`
	PriceDecimals int32  `json:"priceDecimals"`
}

// ParseMarket splits a BASE-QUOTE symbol. Token decimals default to
// defaultDecimals unless listed in decimals.
func ParseMarket(symbol string, decimals map[string]int32, defaultDecimals, priceDecimals int32) (Market, error) {
	base, quote, ok := strings.Cut(symbol, "-")
	if !ok || base == "" || quote == "" {
		return Market{}, fmt.Errorf("invalid market symbol %q, want BASE-QUOTE", symbol)
	}
	tokenOf := func(name string) Token {
		d, ok := decimals[name]
		if !ok {
			d = defaultDecimals
		}
		return Token{Name: name, Decimals: d}
	}
	return Market{
		Symbol:        symbol,
		Base:          tokenOf(base),
		Quote:         tokenOf(quote),
		PriceDecimals: priceDecimals,
	}, nil
}

// MarketSnapshot is what the feed hands to the aggregator. Market is nil when
// no market is selected.
type MarketSnapshot struct {
	Market  *Market     `json:"market"`
	Depth   MarketDepth `json:"depth"`
	Loading bool        `json:"loading"`
}

func (s MarketSnapshot) MarketSelected() bool {
	return s.Market != nil
}
