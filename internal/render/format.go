// Package render turns invoices and quotations into printable documents:
// A4 and receipt PDFs through fpdf, and HTML print views.
package render

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"stitchdesk/internal/decimal"
)

var printer = message.NewPrinter(language.MustParse("en-IN"))

// Number groups the integer part the way Indian documents print it.
func Number(d decimal.Decimal) string {
	return printer.Sprintf("%.2f", d.Float64())
}

// pdfSymbols avoids glyphs the core PDF fonts cannot draw.
var pdfSymbols = map[string]string{
	"INR": "Rs.",
	"USD": "$",
	"EUR": "EUR",
	"GBP": "GBP",
}

var htmlSymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Money prints an amount for a PDF. An empty currency means INR.
func Money(d decimal.Decimal, currency string) string {
	return withSymbol(pdfSymbols, d, currency)
}

// HTMLMoney is Money with the proper currency sign.
func HTMLMoney(d decimal.Decimal, currency string) string {
	return withSymbol(htmlSymbols, d, currency)
}

func withSymbol(symbols map[string]string, d decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "INR"
	}
	sym, ok := symbols[currency]
	if !ok {
		sym = currency
	}
	sep := " "
	if sym == "$" || sym == "₹" || sym == "€" || sym == "£" {
		sep = ""
	}
	if d.IsNegative() {
		return "-" + sym + sep + Number(d.Abs())
	}
	return sym + sep + Number(d)
}
