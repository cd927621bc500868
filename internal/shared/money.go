package shared

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders an amount the way Brazilian customers read it, e.g. "R$ 1.234,50".
func FormatBRL(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return brl.Sprint(currency.Symbol(currency.BRL.Amount(f)))
}

// DateLayoutBR renders dates as dd/mm/yyyy.
const DateLayoutBR = "02/01/2006"
