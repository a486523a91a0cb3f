// Package format turns base-unit token amounts, addresses and timestamps into display strings.
//
// Amounts stay integer strings (smallest token unit) until they reach this package;
// the division by 10^18 happens here, in decimal arithmetic.
package format

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// Decimals is the token scale used by the campaign contract.
	Decimals = 18
	// Unit is appended to every formatted amount. The campaign token is USDT,
	// the dashboard has always labelled amounts ETH.
	Unit = "ETH"
)

var (
	thousand = decimal.NewFromInt(1000)
	one      = decimal.NewFromInt(1)

	counts = message.NewPrinter(language.English)
)

// Units converts a base-unit integer string into token units. Unparseable input is zero.
func Units(baseUnits string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(baseUnits))
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(-Decimals)
}

// Float is Units as a float64, for chart coordinates only.
func Float(baseUnits string) float64 {
	return Units(baseUnits).InexactFloat64()
}

// Amount formats a base-unit amount: "1.5K ETH" at or above 1000 units,
// "12.34 ETH" from 1 up to 1000, "0.1234 ETH" below 1.
func Amount(baseUnits string) string {
	return units(Units(baseUnits))
}

// AmountValue formats a value already expressed in token units with the same rules as Amount.
func AmountValue(v float64) string {
	return units(decimal.NewFromFloat(v))
}

func units(v decimal.Decimal) string {
	switch {
	case v.GreaterThanOrEqual(thousand):
		return v.Div(thousand).StringFixed(1) + "K " + Unit
	case v.GreaterThanOrEqual(one):
		return v.StringFixed(2) + " " + Unit
	default:
		return v.StringFixed(4) + " " + Unit
	}
}

// Address shortens a hex address to 0x1234...abcd. Inputs shorter than
// 10 characters would overlap and are returned unchanged.
func Address(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// Time renders a unix-seconds string as HH:MM:SS in loc (UTC when nil).
func Time(unixSeconds string, loc *time.Location) string {
	secs, err := strconv.ParseInt(strings.TrimSpace(unixSeconds), 10, 64)
	if err != nil {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(secs, 0).In(loc).Format("15:04:05")
}

// Count groups digits the way the dashboard shows deposit counts: 12,345.
func Count(n int64) string {
	return counts.Sprintf("%d", n)
}
