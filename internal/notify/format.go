package notify

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const whatsAppPrefix = "whatsapp:"

var ErrNoRecipient = errors.New("no recipient")

// FormatARS renders an amount the way es-AR prints pesos: "$ 1.234,50".
func FormatARS(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}

	return sign + "$ " + grouped.String() + "," + frac
}

// WhatsAppNumber normalizes an Argentine phone number to "whatsapp:+549<area><number>".
func WhatsAppNumber(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, whatsAppPrefix) {
		return phone, nil
	}

	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	digits = strings.TrimPrefix(digits, "00")

	switch {
	case digits == "":
		return "", ErrNoRecipient
	case strings.HasPrefix(digits, "549"):
	case strings.HasPrefix(digits, "54"):
		digits = "549" + digits[2:]
	default:
		digits = "549" + strings.TrimPrefix(digits, "0")
	}

	return whatsAppPrefix + "+" + digits, nil
}
