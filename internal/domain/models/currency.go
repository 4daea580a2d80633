package models

import (
	"strings"
)

// CurrencyPair identifies an exchange rate. Its rate is the number of Base units
// that buy one unit of Quote: for USD/JPY a rate of 0.0067 means one yen costs
// 0.0067 dollars. The market data ticker for the pair is Quote+Base+"=X", which
// Yahoo quotes in exactly that direction.
type CurrencyPair struct {
	Base  string `json:"base_currency" msgpack:"base"`
	Quote string `json:"target_currency" msgpack:"quote"`
}

// NewCurrencyPair trims and upper-cases both codes and validates them.
func NewCurrencyPair(base, quote string) (CurrencyPair, error) {
	p := CurrencyPair{Base: NormalizeCode(base), Quote: NormalizeCode(quote)}
	if !IsCurrencyCode(p.Base) {
		return CurrencyPair{}, NewError(KindValidation, "base currency %q is not a 3-letter code", base)
	}
	if !IsCurrencyCode(p.Quote) {
		return CurrencyPair{}, NewError(KindValidation, "target currency %q is not a 3-letter code", quote)
	}
	if p.Base == p.Quote {
		return CurrencyPair{}, NewError(KindValidation, "base and target currency must differ")
	}
	return p, nil
}

// ParsePair accepts "USD/JPY", "USD-JPY" or "USDJPY".
func ParsePair(s string) (CurrencyPair, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "/-:"); i >= 0 {
		return NewCurrencyPair(s[:i], s[i+1:])
	}
	if len(s) == 6 {
		return NewCurrencyPair(s[:3], s[3:])
	}
	return CurrencyPair{}, NewError(KindValidation, "cannot parse currency pair %q", s)
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsCurrencyCode reports whether code is three upper-case ASCII letters.
func IsCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// Key is the canonical cache and log key, e.g. "USD/JPY".
func (p CurrencyPair) Key() string {
	return p.Base + "/" + p.Quote
}

func (p CurrencyPair) String() string {
	return p.Key()
}

// Ticker is the provider symbol, e.g. "JPYUSD=X" for USD/JPY.
func (p CurrencyPair) Ticker() string {
	return p.Quote + p.Base + "=X"
}

// Inverse swaps the legs; its rate is the reciprocal of p's.
func (p CurrencyPair) Inverse() CurrencyPair {
	return CurrencyPair{Base: p.Quote, Quote: p.Base}
}
