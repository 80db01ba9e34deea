// Package finstmt computes the derived totals of the personal financial
// statement: income and expense sums, assets, liabilities and net worth.
package finstmt

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// ParseAmount reads a user-entered currency string. Everything except digits
// and '.' is dropped, then the longest leading decimal number is parsed, so
// "$1,234.50" is 1234.5 and "1.2.3" is 1.2. Unparseable input is 0.
func ParseAmount(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	end, dot := 0, false
	for end < len(cleaned) {
		if cleaned[end] == '.' {
			if dot {
				break
			}
			dot = true
		}
		end++
	}
	prefix := cleaned[:end]
	if strings.Trim(prefix, ".") == "" {
		return 0
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FormatCurrency renders v as US dollars with grouped thousands and as many
// fraction digits as needed to represent v exactly: 12345.5 is "$12,345.5".
func FormatCurrency(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := strconv.FormatFloat(v, 'f', -1, 64)
	whole, frac, _ := strings.Cut(digits, ".")
	out := sign + "$" + groupWhole(whole)
	if frac != "" {
		out += "." + frac
	}
	return out
}

// FormatWholeCurrency renders v rounded half away from zero with no fraction,
// e.g. "$3,000" or "-$250".
func FormatWholeCurrency(v float64) string {
	r := math.Round(v)
	sign := ""
	if r < 0 {
		sign = "-"
		r = -r
	}
	return sign + "$" + groupWhole(strconv.FormatFloat(r, 'f', 0, 64))
}

// groupWhole inserts thousands separators into a string of decimal digits.
// Digit strings beyond int64 range are left ungrouped.
func groupWhole(digits string) string {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return digits
	}
	return printer.Sprintf("%d", n)
}
