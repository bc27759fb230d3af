package extraction

import (
	"regexp"
	"strings"

	"github.com/aristath/fiis/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	nonNumericChars = regexp.MustCompile(`[^0-9,.]`)
	// "1.234" or "1.234.567": periods used only as thousands separators
	dotThousands = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	hasDigit     = regexp.MustCompile(`\d`)
)

// ParseAmount converts Brazilian- or US-formatted numeric text ("R$ 1.234,56",
// "0,10", "1.5") into an exact decimal. Currency symbols and whitespace are ignored.
//
// A lone period followed by one or two digits is a decimal point; periods in a
// strict thousands grouping are dropped. When both separators appear the period is
// the thousands separator and the comma the decimal one.
func ParseAmount(text string) (decimal.Decimal, error) {
	cleaned := nonNumericChars.ReplaceAllString(text, "")

	hasComma := strings.Contains(cleaned, ",")
	hasPeriod := strings.Contains(cleaned, ".")

	if hasPeriod && !hasComma && dotThousands.MatchString(cleaned) {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	if hasPeriod && hasComma {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	if !hasDigit.MatchString(cleaned) {
		return decimal.Zero, &domain.ParseError{Text: text}
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &domain.ParseError{Text: text}
	}
	return value, nil
}
