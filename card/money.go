package card

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// parsePrice cleans a raw feed price string and parses it as a decimal.
// Real feeds mix currency codes, thousands separators and comma decimals
// ("6199999 ARS", "1234,50"); everything except digits, dot and comma is
// stripped, and a single comma is treated as the decimal point. Empty or
// unparseable input yields zero, never an error.
func parsePrice(raw string) decimal.Decimal {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	s := strings.Replace(b.String(), ",", ".", 1)
	if s == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil || v.Sign() < 0 {
		return decimal.Zero
	}
	return v
}

// FormatMoney renders a monetary value the way the cards display it:
// no fractional digits (remainders truncated), dot-grouped thousands,
// leading "$".
func FormatMoney(v decimal.Decimal) string {
	return "$" + groupThousands(v.IntPart())
}

func groupThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) > 3 {
		var b strings.Builder
		lead := len(s) % 3
		if lead > 0 {
			b.WriteString(s[:lead])
		}
		for i := lead; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// installmentAmount divides the effective price across n installments.
// The fractional remainder is dropped later by FormatMoney's
// zero-fraction rule, so no explicit rounding happens here.
func installmentAmount(price decimal.Decimal, n int) decimal.Decimal {
	if n <= 1 {
		return price
	}
	return price.DivRound(decimal.NewFromInt(int64(n)), 6)
}
