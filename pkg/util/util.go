package util

import (
	"fmt"

	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/shopspring/decimal"
)

func StringToDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal string: %s", s)
	}
	return d, nil
}

// StringsToOffer parses a price/volume string pair as delivered by upstream feeds.
func StringsToOffer(price, volume string) (model.Offer, error) {
	p, err := StringToDecimal(price)
	if err != nil {
		return model.Offer{}, err
	}
	v, err := StringToDecimal(volume)
	if err != nil {
		return model.Offer{}, err
	}
	if p.IsNegative() || v.IsNegative() {
		return model.Offer{}, fmt.Errorf("negative offer %s@%s", volume, price)
	}
	return model.Offer{Price: p, Volume: v}, nil
}
