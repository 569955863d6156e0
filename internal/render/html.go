package render

import (
	"embed"
	"html/template"
	"slices"
	"strings"

	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// FuncMap is shared by the print templates.
var FuncMap = template.FuncMap{
	"money": func(d decimal.Decimal) string { return HTMLMoney(d, "INR") },
	"num":   Number,
	"add":   func(a, b int) int { return a + b },
	"lines": func(s string) []string {
		var out []string
		for _, l := range strings.Split(s, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				out = append(out, l)
			}
		}
		return out
	},
}

// Templates parses the embedded print views. Gin serves them through
// SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(FuncMap).ParseFS(templateFS, "templates/*.tmpl"))
}

// TemplateName picks the print view for the shop's invoice style.
func TemplateName(shop *models.Shop) string {
	name := shop.InvoiceTemplate
	if !slices.Contains(models.InvoiceTemplates, name) {
		name = "classic"
	}
	return "invoice_" + name + ".tmpl"
}

type TaxLine struct {
	Label  string
	Amount decimal.Decimal
}

// PrintView is the data every invoice print template receives.
type PrintView struct {
	Shop    *models.Shop
	Invoice *models.Invoice
	Taxes   []TaxLine
	LogoURL string
}

func NewPrintView(inv *models.Invoice, shop *models.Shop) PrintView {
	inv.FillRefs()
	v := PrintView{Shop: shop, Invoice: inv, LogoURL: shop.LogoPath}
	if !shop.ShowTaxOnInvoice {
		return v
	}
	switch inv.GSTType {
	case models.GSTIntrastate:
		v.Taxes = []TaxLine{
			{percentLabel("CGST", inv.CGSTPercent), inv.CGSTAmount},
			{percentLabel("SGST", inv.SGSTPercent), inv.SGSTAmount},
		}
	case models.GSTInterstate:
		v.Taxes = []TaxLine{{percentLabel("IGST", inv.IGSTPercent), inv.IGSTAmount}}
	}
	return v
}
