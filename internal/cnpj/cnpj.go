// Package cnpj validates Brazilian company registry numbers and looks them up
// in a public registry API.
package cnpj

import (
	"fmt"
	"strings"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// ErrInvalid is returned for malformed numbers or wrong check digits.
var ErrInvalid = fmt.Errorf("%w: cnpj: invalid number", httpx.ErrValidation)

// Digits strips everything but digits.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate checks length and both check digits.
func Validate(raw string) error {
	d := Digits(raw)
	if len(d) != 14 || strings.Count(d, d[:1]) == 14 {
		return ErrInvalid
	}
	if checkDigit(d[:12], 5) != int(d[12]-'0') || checkDigit(d[:13], 6) != int(d[13]-'0') {
		return fmt.Errorf("%w (check digit)", ErrInvalid)
	}
	return nil
}

func checkDigit(base string, weight int) int {
	sum := 0
	for _, r := range base {
		sum += int(r-'0') * weight
		weight--
		if weight < 2 {
			weight = 9
		}
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}
