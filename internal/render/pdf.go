package render

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
)

// LogoResolver maps a stored logo path to a readable file.
// *media.Store satisfies it.
type LogoResolver interface {
	Local(path string) (string, bool)
}

type Renderer struct {
	Logos LogoResolver
}

func New(logos LogoResolver) *Renderer { return &Renderer{Logos: logos} }

type rgb struct{ r, g, b int }

type style struct {
	font       string
	accent     rgb
	fillHeader bool
	border     string
}

var styles = map[string]style{
	"classic": {font: "Helvetica", accent: rgb{31, 58, 96}, fillHeader: true, border: "1"},
	"modern":  {font: "Helvetica", accent: rgb{0, 128, 128}, fillHeader: true, border: "B"},
	"minimal": {font: "Helvetica", accent: rgb{60, 60, 60}, border: "B"},
	"elegant": {font: "Times", accent: rgb{110, 30, 50}, fillHeader: true, border: "TB"},
}

func styleFor(name string) style {
	if s, ok := styles[name]; ok {
		return s
	}
	return styles["classic"]
}

// doc wraps fpdf with the cp1252 translation every text call needs.
type doc struct {
	*fpdf.Fpdf
	tr func(string) string
	st style
}

func newA4(st style) *doc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	return &doc{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), st: st}
}

func (d *doc) font(styleStr string, size float64) { d.SetFont(d.st.font, styleStr, size) }

func (d *doc) cell(w, h float64, s, border string, ln int, align string, fill bool) {
	d.CellFormat(w, h, d.tr(s), border, ln, align, fill, 0, "")
}

func (d *doc) multi(w, h float64, s, align string) {
	d.MultiCell(w, h, d.tr(s), "", align, false)
}

func (d *doc) accentText() { d.SetTextColor(d.st.accent.r, d.st.accent.g, d.st.accent.b) }

func (d *doc) plainText() { d.SetTextColor(30, 30, 30) }

func (d *doc) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return buf.Bytes(), nil
}

func (r *Renderer) logo(d *doc, shop *models.Shop, x, y, h float64) bool {
	if r == nil || r.Logos == nil || shop.LogoPath == "" {
		return false
	}
	p, ok := r.Logos.Local(shop.LogoPath)
	if !ok {
		return false
	}
	if _, err := os.Stat(p); err != nil {
		return false
	}
	d.ImageOptions(p, x, y, 0, h, false, fpdf.ImageOptions{ImageType: "JPG", ReadDpi: true}, 0, "")
	if d.Err() {
		// unreadable logos are skipped
		d.ClearError()
		return false
	}
	return true
}

// header prints the shop block on the left and the document title on the
// right.
func (r *Renderer) header(d *doc, shop *models.Shop, title string, meta [][2]string) {
	left, top := 15.0, 15.0
	x := left
	if r.logo(d, shop, left, top, 18) {
		x = left + 22
	}
	d.SetXY(x, top)
	d.accentText()
	d.font("B", 16)
	d.cell(100, 8, shop.ShopName, "", 2, "L", false)
	d.plainText()
	d.font("", 9)
	for _, line := range shopLines(shop) {
		d.cell(100, 4.5, line, "", 2, "L", false)
	}
	bottom := d.GetY()

	d.SetXY(125, top)
	d.accentText()
	d.font("B", 18)
	d.cell(70, 9, strings.ToUpper(title), "", 2, "R", false)
	d.plainText()
	d.font("", 9)
	for _, kv := range meta {
		d.cell(70, 5, kv[0]+": "+kv[1], "", 2, "R", false)
	}
	if y := d.GetY(); y > bottom {
		bottom = y
	}
	d.SetDrawColor(d.st.accent.r, d.st.accent.g, d.st.accent.b)
	d.Line(left, bottom+3, 195, bottom+3)
	d.SetY(bottom + 7)
}

func shopLines(shop *models.Shop) []string {
	var out []string
	for _, l := range strings.Split(shop.FullAddress, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if shop.PhoneNumber != "" {
		out = append(out, "Phone: "+shop.PhoneNumber)
	}
	if shop.Email != "" {
		out = append(out, "Email: "+shop.Email)
	}
	if shop.GSTNumber != "" {
		out = append(out, "GSTIN: "+shop.GSTNumber)
	}
	return out
}

type column struct {
	title string
	width float64
	align string
}

func (d *doc) table(cols []column, rows [][]string) {
	d.font("B", 9)
	if d.st.fillHeader {
		d.SetFillColor(d.st.accent.r, d.st.accent.g, d.st.accent.b)
		d.SetTextColor(255, 255, 255)
	} else {
		d.accentText()
	}
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		d.cell(c.width, 8, c.title, d.st.border, ln, c.align, d.st.fillHeader)
	}
	d.plainText()
	d.font("", 9)
	for _, row := range rows {
		for i, c := range cols {
			ln := 0
			if i == len(cols)-1 {
				ln = 1
			}
			d.cell(c.width, 7, truncate(d, row[i], c.width-2), d.st.border, ln, c.align, false)
		}
	}
}

// truncate shortens s to fit w millimetres in the current font.
func truncate(d *doc, s string, w float64) string {
	if d.GetStringWidth(s) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && d.GetStringWidth(string(r)+"...") > w {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func (d *doc) totals(rows [][2]string, grand [2]string) {
	d.Ln(3)
	for _, kv := range rows {
		d.SetX(115)
		d.font("", 9)
		d.cell(45, 6, kv[0], "", 0, "L", false)
		d.cell(35, 6, kv[1], "", 1, "R", false)
	}
	d.SetX(115)
	d.font("B", 11)
	d.accentText()
	d.cell(45, 8, grand[0], "T", 0, "L", false)
	d.cell(35, 8, grand[1], "T", 1, "R", false)
	d.plainText()
}

func (d *doc) section(title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	d.Ln(4)
	d.font("B", 9)
	d.accentText()
	d.cell(0, 5, title, "", 1, "L", false)
	d.plainText()
	d.font("", 8.5)
	d.multi(0, 4.5, body, "L")
}

func percentLabel(name string, p *decimal.Decimal) string {
	if p == nil {
		return name
	}
	return fmt.Sprintf("%s (%s%%)", name, strings.TrimSuffix(strings.TrimSuffix(p.String(), "0"), ".0"))
}

// InvoicePDF renders an order invoice on A4 in the shop's template style.
func (r *Renderer) InvoicePDF(inv *models.Invoice, shop *models.Shop) ([]byte, error) {
	d := newA4(styleFor(shop.InvoiceTemplate))
	inv.FillRefs()
	meta := [][2]string{{"Invoice No", inv.InvoiceNumber}, {"Date", inv.InvoiceDate.String()}}
	if inv.OrderNumber != "" {
		meta = append(meta, [2]string{"Order", inv.OrderNumber})
	}
	r.header(d, shop, "Invoice", meta)

	d.font("B", 9)
	d.accentText()
	d.cell(0, 5, "Bill To", "", 1, "L", false)
	d.plainText()
	d.font("", 9)
	d.cell(0, 5, inv.CustomerName, "", 1, "L", false)
	if inv.CustomerPhone != "" {
		d.cell(0, 5, "Phone: "+inv.CustomerPhone, "", 1, "L", false)
	}
	if inv.CustomerAddress != "" {
		d.multi(90, 4.5, inv.CustomerAddress, "L")
	}
	d.Ln(4)

	cols := []column{
		{"#", 10, "C"},
		{"Description", 80, "L"},
		{"Qty", 18, "C"},
		{"Unit", 18, "C"},
		{"Rate", 27, "R"},
		{"Amount", 27, "R"},
	}
	rows := make([][]string, len(inv.Items))
	for i, it := range inv.Items {
		rows[i] = []string{
			strconv.Itoa(i + 1), it.ItemDescription, strconv.Itoa(it.Quantity), string(it.Unit),
			Number(it.UnitPrice), Number(it.Amount),
		}
	}
	d.table(cols, rows)

	totals := [][2]string{{"Subtotal", Money(inv.Subtotal, "INR")}}
	if shop.ShowTaxOnInvoice {
		switch inv.GSTType {
		case models.GSTIntrastate:
			totals = append(totals,
				[2]string{percentLabel("CGST", inv.CGSTPercent), Money(inv.CGSTAmount, "INR")},
				[2]string{percentLabel("SGST", inv.SGSTPercent), Money(inv.SGSTAmount, "INR")})
		case models.GSTInterstate:
			totals = append(totals, [2]string{percentLabel("IGST", inv.IGSTPercent), Money(inv.IGSTAmount, "INR")})
		}
	}
	d.totals(totals, [2]string{"Total", Money(inv.TotalAmount, "INR")})

	d.section("Notes", inv.Notes)
	d.section("Terms & Conditions", inv.TermsAndConditions)
	return d.bytes()
}

// posWidth is the paper width of a thermal receipt roll.
const posWidth = 80.0

// POSBill renders the invoice as an 80mm receipt. The page is as long as
// the content.
func (r *Renderer) POSBill(inv *models.Invoice, shop *models.Shop) ([]byte, error) {
	inv.FillRefs()
	height := 110 + 9*float64(len(inv.Items))
	if inv.Notes != "" {
		height += 15
	}
	pdf := fpdf.NewCustom(&fpdf.InitType{UnitStr: "mm", Size: fpdf.SizeType{Wd: posWidth, Ht: height}})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	d := &doc{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), st: style{font: "Courier", border: ""}}
	w := posWidth - 8

	d.font("B", 11)
	d.multi(w, 5, shop.ShopName, "C")
	d.font("", 7.5)
	for _, line := range shopLines(shop) {
		d.multi(w, 3.5, line, "C")
	}
	rule := func() { d.cell(w, 3.5, strings.Repeat("-", 42), "", 1, "C", false) }
	rule()
	d.cell(w, 4, "Bill: "+inv.InvoiceNumber, "", 1, "L", false)
	d.cell(w, 4, "Date: "+inv.InvoiceDate.String(), "", 1, "L", false)
	if inv.CustomerName != "" {
		d.cell(w, 4, "Customer: "+inv.CustomerName, "", 1, "L", false)
	}
	rule()
	d.font("B", 7.5)
	d.cell(36, 4, "Item", "", 0, "L", false)
	d.cell(10, 4, "Qty", "", 0, "R", false)
	d.cell(26, 4, "Amount", "", 1, "R", false)
	d.font("", 7.5)
	for _, it := range inv.Items {
		d.cell(36, 4, truncate(d, it.ItemDescription, 35), "", 0, "L", false)
		d.cell(10, 4, strconv.Itoa(it.Quantity), "", 0, "R", false)
		d.cell(26, 4, Number(it.Amount), "", 1, "R", false)
		d.cell(w, 3.5, fmt.Sprintf("  @ %s / %s", Number(it.UnitPrice), it.Unit), "", 1, "L", false)
	}
	rule()
	line := func(k string, v decimal.Decimal) {
		d.cell(42, 4, k, "", 0, "L", false)
		d.cell(30, 4, Number(v), "", 1, "R", false)
	}
	line("Subtotal", inv.Subtotal)
	if shop.ShowTaxOnInvoice && !inv.TaxAmount.IsZero() {
		line("Tax", inv.TaxAmount)
	}
	d.font("B", 9)
	line("TOTAL Rs.", inv.TotalAmount)
	d.font("", 7.5)
	rule()
	if inv.Notes != "" {
		d.multi(w, 3.5, inv.Notes, "L")
	}
	d.cell(w, 5, "Thank you! Visit again.", "", 1, "C", false)
	return d.bytes()
}

// QuotationPDF renders a free-form quotation or invoice document.
func (r *Renderer) QuotationPDF(q *models.Quotation, shop *models.Shop) ([]byte, error) {
	d := newA4(styleFor(shop.InvoiceTemplate))
	title := "Quotation"
	if q.IsInvoice() {
		title = "Invoice"
	}
	meta := [][2]string{{"No", q.QuotationNo}, {"Date", q.Date.String()}}
	if q.IsInvoice() {
		meta = append(meta, [2]string{"Status", strings.ToUpper(q.PaymentStatus)})
	}
	r.header(d, shop, title, meta)
	if q.Voided {
		d.SetTextColor(200, 30, 30)
		d.font("B", 14)
		d.cell(0, 8, "VOID", "", 1, "C", false)
		d.plainText()
	}

	d.font("B", 9)
	d.accentText()
	d.cell(0, 5, "To", "", 1, "L", false)
	d.plainText()
	d.font("", 9)
	d.multi(100, 4.5, q.ToAddress, "L")
	if q.ClientPhone != "" {
		d.cell(0, 5, "Phone: "+q.ClientPhone, "", 1, "L", false)
	}
	d.Ln(4)

	cols := []column{
		{"#", 10, "C"},
		{"Description", 78, "L"},
		{"HSN", 20, "C"},
		{"Qty", 18, "C"},
		{"Rate", 27, "R"},
		{"Amount", 27, "R"},
	}
	rows := make([][]string, len(q.Items))
	for i, l := range q.Items {
		rows[i] = []string{
			strconv.Itoa(i + 1), l.Description, l.HSNCode, l.Quantity.String(),
			Number(l.Rate), Number(l.Amount),
		}
	}
	d.table(cols, rows)

	totals := [][2]string{{"Sub Total", Money(q.SubTotal, q.Currency)}}
	if !q.GSTAmount.IsZero() {
		totals = append(totals, [2]string{"GST", Money(q.GSTAmount, q.Currency)})
	}
	d.totals(totals, [2]string{"Total", Money(q.TotalAmount, q.Currency)})

	d.section("Payment Details", paymentBlock(q.PaymentInfo))
	return d.bytes()
}

func paymentBlock(p models.PaymentInfo) string {
	var b strings.Builder
	add := func(k, v string) {
		if strings.TrimSpace(v) != "" {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
	}
	add("Bank", p.BankName)
	add("Branch", p.BranchName)
	add("Account Name", p.AccountName)
	add("Account No", p.AccountNumber)
	add("IFSC", p.IFSCCode)
	add("GPay / PhonePe", p.GPayPhonePe)
	return strings.TrimRight(b.String(), "\n")
}
