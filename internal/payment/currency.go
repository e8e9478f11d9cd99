package payment

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ISO 4217 numeric codes accepted by the provider.
const (
	CurrencyUSD = 840
	CurrencyEUR = 978
	CurrencyUAH = 980
)

var hundred = decimal.NewFromInt(100)

// CurrencyCode maps an alphabetic currency to its numeric code. Anything
// other than USD and EUR is charged in hryvnia.
func CurrencyCode(iso string) int {
	switch strings.ToUpper(strings.TrimSpace(iso)) {
	case "USD":
		return CurrencyUSD
	case "EUR":
		return CurrencyEUR
	default:
		return CurrencyUAH
	}
}

// ToMinorUnits converts an amount to cents, dropping fractions of a cent.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Truncate(0).IntPart()
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
