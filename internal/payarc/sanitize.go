package payarc

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	emailAllowed = regexp.MustCompile(`[^A-Za-z0-9.!#$%&'*+/=?^_{|}~@-]`)
)

// SanitizeText strips markup, control characters and line breaks, collapses
// runs of whitespace and trims the result.
func SanitizeText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// SanitizeEmail drops characters that cannot appear in an address.
func SanitizeEmail(s string) string {
	return emailAllowed.ReplaceAllString(strings.TrimSpace(s), "")
}

// ToMinorUnits converts a major-unit amount to cents, rounding half away from
// zero so 0.105 becomes 11.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// absint reads the leading digits of s; anything unparsable is 0.
func absint(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return v
}
