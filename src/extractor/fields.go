package extractor

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yuanv4/aibookkeeping/src/layouts"
)

// dateLayouts are tried in order. Single-digit month/day layouts also
// accept zero-padded values, so "2023/1/3" and "2023/01/03" both parse.
var dateLayouts = []string{
	"20060102",
	"2006-1-2",
	"2006/1/2",
	"2006年1月2日",
	"2006-1-2 15:04:05",
	"2006/1/2 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2 15:04",
	"2006-01-02T15:04:05Z07:00",
}

// parseDate recognizes the date formats seen in issuer exports. Unparseable
// values are a soft per-row failure for the caller.
func parseDate(s string) (time.Time, error) {
	cleaned := strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\""))
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, cleaned)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// amountStrip removes the decoration issuer exports wrap around numbers:
// currency symbols, thousands separators, plain and non-breaking spaces.
var amountStrip = strings.NewReplacer(
	"¥", "", "￥", "", "$", "", "€", "", "£", "",
	",", "", "，", "",
	" ", "", " ", "", "　", "",
	"\"", "", "'", "",
)

// parseAmount normalizes a raw cell into a decimal. Parenthesized values
// (both ASCII and full-width) are negative. Non-numeric values yield
// (zero, false) so the caller can flag and drop the row without failing
// the file.
func parseAmount(s string) (decimal.Decimal, bool) {
	cleaned := amountStrip.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	} else if strings.HasPrefix(cleaned, "（") && strings.HasSuffix(cleaned, "）") {
		negative = true
		cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "（"), "）")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// normalizeCurrency maps a free-text currency label to a 3-letter code via
// the layout's alias map. Already-3-letter alphabetic values pass through
// uppercased. Unresolved labels fall back to the issuer default; fellBack
// tells the caller to log a warning.
func normalizeCurrency(raw string, layout *layouts.Layout) (code string, fellBack bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return layout.DefaultCurrency, false
	}
	if mapped, ok := layout.CurrencyAliases[cleaned]; ok {
		return mapped, false
	}
	upper := strings.ToUpper(cleaned)
	if mapped, ok := layout.CurrencyAliases[upper]; ok {
		return mapped, false
	}
	if len(upper) == 3 && isAlpha(upper) {
		return upper, false
	}
	return layout.DefaultCurrency, true
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
