package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
	"stitchdesk/internal/numbering"
	"stitchdesk/internal/pricing"
	"stitchdesk/internal/repository"
)

type QuotationRequest struct {
	QuotationNo   *string                 `json:"quotation_no" binding:"omitempty,max=100"`
	Date          *models.Date            `json:"date"`
	ToAddress     *string                 `json:"to_address"`
	ClientPhone   *string                 `json:"client_phone" binding:"omitempty,max=50"`
	Currency      *string                 `json:"currency"`
	DocumentType  *string                 `json:"document_type"`
	PaymentStatus *string                 `json:"payment_status"`
	BankName      *string                 `json:"bank_name"`
	BranchName    *string                 `json:"branch_name"`
	AccountName   *string                 `json:"account_name"`
	AccountNumber *string                 `json:"account_number"`
	IFSCCode      *string                 `json:"ifsc_code"`
	GPayPhonePe   *string                 `json:"gpay_phonepe"`
	GSTType       *string                 `json:"gst_type"`
	CGSTRate      *decimal.Decimal        `json:"cgst_rate"`
	SGSTRate      *decimal.Decimal        `json:"sgst_rate"`
	IGSTRate      *decimal.Decimal        `json:"igst_rate"`
	Items         *[]models.QuotationLine `json:"items"`
}

type CatalogRequest struct {
	Description *string          `json:"description" binding:"omitempty,max=500"`
	HSNCode     *string          `json:"hsn_code" binding:"omitempty,max=50"`
	DefaultRate *decimal.Decimal `json:"default_rate"`
}

type ShareLink struct {
	WhatsAppURL string `json:"whatsapp_url"`
	Message     string `json:"message"`
	PDFURL      string `json:"pdf_url"`
	Token       string `json:"token"`
}

type ExportRequest struct {
	FromDate          models.Date `json:"from_date" binding:"required"`
	ToDate            models.Date `json:"to_date" binding:"required"`
	IncludeQuotations *bool       `json:"include_quotations"`
	IncludeInvoices   *bool       `json:"include_invoices"`
	PaymentStatus     string      `json:"payment_status" binding:"omitempty,oneof=all paid unpaid"`
}

type ExportCount struct {
	TotalDocuments int `json:"total_documents"`
	Quotations     int `json:"quotations"`
	Invoices       int `json:"invoices"`
}

type QuotationService struct {
	Quotations    repository.QuotationRepository
	Catalog       repository.CatalogRepository
	Users         repository.UserRepository
	Shops         repository.ShopRepository
	Renderer      DocumentRenderer
	PublicBaseURL string
	Now           func() time.Time
}

func (s *QuotationService) Create(ctx context.Context, u *models.User, req QuotationRequest) (*models.Quotation, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	shop, err := s.Shops.Get(ctx, shopID)
	if err != nil {
		return nil, err
	}
	q := &models.Quotation{
		ShopID:        shopID,
		CreatedByID:   &u.ID,
		Date:          models.NewDate(s.Now()),
		Currency:      shop.DefaultCurrency,
		DocumentType:  models.DocQuotation,
		PaymentStatus: models.DocUnpaid,
		PaymentInfo:   u.PaymentInfo,
		GSTType:       models.GSTIntrastate,
		Items:         []models.QuotationLine{},
	}
	if q.Currency == "" {
		q.Currency = "INR"
	}
	if err := applyQuotation(q, req, true); err != nil {
		return nil, err
	}
	auto := q.QuotationNo == ""
	prefix := shop.QuotationPrefix
	if q.IsInvoice() {
		prefix = shop.InvoicePrefix
	}
	for attempt := 1; ; attempt++ {
		if auto {
			last, err := s.Quotations.LastNumber(ctx, shopID, prefix)
			if err != nil {
				return nil, err
			}
			q.QuotationNo = numbering.Next(prefix, last)
		}
		token, err := shareToken(q)
		if err != nil {
			return nil, err
		}
		q.ShareToken = &token
		err = s.Quotations.Create(ctx, q)
		if err == nil {
			return q, nil
		}
		if !auto || !isConflict(err) || attempt == numberAttempts {
			return nil, err
		}
	}
}

func (s *QuotationService) Get(ctx context.Context, u *models.User, id string) (*models.Quotation, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	qid, err := parseID("quotation", id)
	if err != nil {
		return nil, err
	}
	q, err := s.Quotations.Get(ctx, shopID, qid)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuotationService) Update(ctx context.Context, u *models.User, id string, req QuotationRequest) (*models.Quotation, error) {
	q, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := applyQuotation(q, req, false); err != nil {
		return nil, err
	}
	if q.QuotationNo == "" {
		return nil, apperr.Invalid("quotation_no", "This field may not be blank.")
	}
	return q, s.Quotations.Save(ctx, q)
}

func (s *QuotationService) Delete(ctx context.Context, u *models.User, id string) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	qid, err := parseID("quotation", id)
	if err != nil {
		return err
	}
	return s.Quotations.Delete(ctx, shopID, qid)
}

func (s *QuotationService) List(ctx context.Context, u *models.User, f repository.QuotationFilter, p repository.PageRequest) (repository.Page[models.Quotation], error) {
	shopID, err := shopOf(u)
	if err != nil {
		return repository.Page[models.Quotation]{}, err
	}
	return s.Quotations.List(ctx, shopID, f, p)
}

func (s *QuotationService) Void(ctx context.Context, u *models.User, id string) (*models.Quotation, error) {
	q, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if !q.IsInvoice() {
		return nil, apperr.BadRequest("Only invoices can be voided")
	}
	if q.Voided {
		return nil, apperr.BadRequest("Invoice is already voided")
	}
	q.Voided = true
	return q, s.Quotations.Save(ctx, q)
}

// PDF renders the document with the shop's letterhead.
func (s *QuotationService) PDF(ctx context.Context, q *models.Quotation) ([]byte, error) {
	shop, err := s.Shops.Get(ctx, q.ShopID)
	if err != nil {
		return nil, err
	}
	return s.Renderer.QuotationPDF(q, shop)
}

// Shared looks a document up by its public share token.
func (s *QuotationService) Shared(ctx context.Context, token string) (*models.Quotation, error) {
	if token == "" {
		return nil, apperr.NewNotFound("document", token)
	}
	q, err := s.Quotations.ByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// WhatsApp builds a wa.me link pointing at the public PDF of the document.
// baseURL is used when no public URL is configured.
func (s *QuotationService) WhatsApp(ctx context.Context, u *models.User, id, baseURL string) (*ShareLink, error) {
	q, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if q.IsInvoice() && q.Voided {
		return nil, apperr.BadRequest("Cannot share voided invoices")
	}
	if q.ShareToken == nil || *q.ShareToken == "" {
		token, err := shareToken(q)
		if err != nil {
			return nil, err
		}
		q.ShareToken = &token
		if err := s.Quotations.Save(ctx, q); err != nil {
			return nil, err
		}
	}
	base := s.PublicBaseURL
	if base == "" {
		base = baseURL
	}
	pdfURL := strings.TrimRight(base, "/") + "/api/d/" + *q.ShareToken + "/"
	kind := "Quotation"
	if q.IsInvoice() {
		kind = "Invoice"
	}
	msg := fmt.Sprintf("Hi! Please find your %s from the below: %s", kind, pdfURL)
	return &ShareLink{
		WhatsAppURL: "https://wa.me/?text=" + url.QueryEscape(msg),
		Message:     msg,
		PDFURL:      pdfURL,
		Token:       *q.ShareToken,
	}, nil
}

// exportSelection picks the documents a bulk export covers. Voided invoices
// never export.
func exportSelection(docs []models.Quotation, req ExportRequest) ([]models.Quotation, ExportCount) {
	withQ := req.IncludeQuotations == nil || *req.IncludeQuotations
	withI := req.IncludeInvoices == nil || *req.IncludeInvoices
	var (
		out []models.Quotation
		n   ExportCount
	)
	for _, d := range docs {
		switch {
		case d.IsInvoice():
			if d.Voided || !withI {
				continue
			}
			paid := d.PaymentStatus == models.DocPaid
			if (req.PaymentStatus == "paid" && !paid) || (req.PaymentStatus == "unpaid" && paid) {
				continue
			}
			n.Invoices++
		default:
			if !withQ {
				continue
			}
			n.Quotations++
		}
		out = append(out, d)
	}
	n.TotalDocuments = n.Quotations + n.Invoices
	return out, n
}

func (s *QuotationService) exportDocs(ctx context.Context, u *models.User, req ExportRequest) ([]models.Quotation, ExportCount, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, ExportCount{}, err
	}
	if req.FromDate.IsZero() || req.ToDate.IsZero() {
		return nil, ExportCount{}, apperr.BadRequest("from_date and to_date are required")
	}
	if req.ToDate.Before(req.FromDate) {
		return nil, ExportCount{}, apperr.Invalid("to_date", "to_date must not be before from_date.")
	}
	docs, err := s.Quotations.CreatedBetween(ctx, shopID, req.FromDate.Time, req.ToDate.AddDays(1).Time)
	if err != nil {
		return nil, ExportCount{}, err
	}
	sel, n := exportSelection(docs, req)
	return sel, n, nil
}

func (s *QuotationService) ExportCount(ctx context.Context, u *models.User, req ExportRequest) (ExportCount, error) {
	_, n, err := s.exportDocs(ctx, u, req)
	return n, err
}

var unsafeFileChars = regexp.MustCompile(`[^\w\-.]`)

// exportName is "YYYY-MM-DD_<number>_<type>.pdf" with unsafe characters
// replaced by underscores.
func exportName(q *models.Quotation) string {
	no := q.QuotationNo
	if no == "" {
		no = "DOC-" + q.ID.String()
	}
	name := fmt.Sprintf("%s_%s_%s.pdf", q.CreatedDay(), no, q.DocumentType)
	return unsafeFileChars.ReplaceAllString(name, "_")
}

// Export renders every selected document into a ZIP archive with
// quotations/ and invoices/ folders.
func (s *QuotationService) Export(ctx context.Context, u *models.User, req ExportRequest) (string, []byte, error) {
	docs, _, err := s.exportDocs(ctx, u, req)
	if err != nil {
		return "", nil, err
	}
	if len(docs) == 0 {
		return "", nil, apperr.Message(404, "No documents found in the specified date range")
	}
	shop, err := s.Shops.Get(ctx, *u.ShopID)
	if err != nil {
		return "", nil, err
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := range docs {
		d := &docs[i]
		pdf, err := s.Renderer.QuotationPDF(d, shop)
		if err != nil {
			return "", nil, err
		}
		dir := "quotations"
		if d.IsInvoice() {
			dir = "invoices"
		}
		w, err := zw.Create(path.Join(dir, exportName(d)))
		if err != nil {
			return "", nil, err
		}
		if _, err := w.Write(pdf); err != nil {
			return "", nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return "", nil, err
	}
	name := fmt.Sprintf("bulk_export_%s_%s.zip", req.FromDate, req.ToDate)
	return name, buf.Bytes(), nil
}

func applyQuotation(q *models.Quotation, req QuotationRequest, creating bool) error {
	verr := &apperr.Validation{}
	setString(&q.QuotationNo, req.QuotationNo)
	if req.Date != nil && !req.Date.IsZero() {
		q.Date = *req.Date
	}
	if req.ToAddress != nil {
		q.ToAddress = strings.TrimSpace(*req.ToAddress)
	}
	if (creating || req.ToAddress != nil) && q.ToAddress == "" {
		verr.Add("to_address", "This field is required.")
	}
	setString(&q.ClientPhone, req.ClientPhone)
	if req.Currency != nil {
		if !slices.Contains(models.Currencies, *req.Currency) {
			verr.Add("currency", "Unsupported currency.")
		}
		q.Currency = *req.Currency
	}
	if req.DocumentType != nil {
		t := strings.ToLower(*req.DocumentType)
		if t != models.DocQuotation && t != models.DocInvoice {
			verr.Add("document_type", "Must be quotation or invoice.")
		}
		q.DocumentType = t
	}
	if req.PaymentStatus != nil {
		st := strings.ToLower(*req.PaymentStatus)
		if st != models.DocPaid && st != models.DocUnpaid {
			verr.Add("payment_status", "Must be paid or unpaid.")
		}
		q.PaymentStatus = st
	}
	setString(&q.BankName, req.BankName)
	setString(&q.BranchName, req.BranchName)
	setString(&q.AccountName, req.AccountName)
	setString(&q.AccountNumber, req.AccountNumber)
	setString(&q.IFSCCode, req.IFSCCode)
	setString(&q.GPayPhonePe, req.GPayPhonePe)
	q.AccountNumber = cleanAccountNumber(q.AccountNumber)

	if req.GSTType != nil {
		switch t := *req.GSTType; t {
		case models.GSTIntrastate, models.GSTInterstate, "none", "":
			q.GSTType = t
		default:
			verr.Add("gst_type", "Must be intrastate, interstate or none.")
		}
	}
	if req.CGSTRate != nil {
		q.CGSTRate = decimal.Ptr(*req.CGSTRate)
	}
	if req.SGSTRate != nil {
		q.SGSTRate = decimal.Ptr(*req.SGSTRate)
	}
	if req.IGSTRate != nil {
		q.IGSTRate = decimal.Ptr(*req.IGSTRate)
	}
	if req.Items != nil {
		for i, l := range *req.Items {
			if strings.TrimSpace(l.Description) == "" {
				verr.Add("items", fmt.Sprintf("Item %d: description is required.", i+1))
			}
			if l.Quantity.IsNegative() || l.Rate.IsNegative() {
				verr.Add("items", fmt.Sprintf("Item %d: quantity and rate must not be negative.", i+1))
			}
		}
		q.Items = *req.Items
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	t := pricing.QuotationTotals(q.Items, q.Currency, q.GSTType, pricing.Rates{
		CGST: decimal.Or(q.CGSTRate, decimal.Zero),
		SGST: decimal.Or(q.SGSTRate, decimal.Zero),
		IGST: decimal.Or(q.IGSTRate, decimal.Zero),
	})
	q.Items, q.SubTotal, q.GSTAmount, q.TotalAmount = t.Lines, t.SubTotal, t.GST, t.Total
	return nil
}

// cleanAccountNumber drops the stray "w" some banking apps prepend when the
// number is copied.
func cleanAccountNumber(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "w") || strings.HasPrefix(s, "W") {
		return s[1:]
	}
	return s
}

// shareNonce adds 16 random bytes to every share token.
var shareNonce = func() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// shareToken derives the public token from the id, the number and a nonce,
// so it must run after the number is assigned.
func shareToken(q *models.Quotation) (string, error) {
	nonce, err := shareNonce()
	if err != nil {
		return "", err
	}
	id := q.ID
	if id == uuid.Nil {
		id = uuid.New()
		q.ID = id
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", id, q.QuotationNo, nonce)))
	return hex.EncodeToString(sum[:])[:32], nil
}

func (s *QuotationService) CreateItem(ctx context.Context, u *models.User, req CatalogRequest) (*models.CatalogItem, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	it := &models.CatalogItem{ShopID: shopID}
	if err := applyCatalog(it, req, true); err != nil {
		return nil, err
	}
	return it, s.Catalog.Create(ctx, it)
}

func (s *QuotationService) Item(ctx context.Context, u *models.User, id string) (*models.CatalogItem, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	iid, err := parseID("item", id)
	if err != nil {
		return nil, err
	}
	it, err := s.Catalog.Get(ctx, shopID, iid)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *QuotationService) UpdateItem(ctx context.Context, u *models.User, id string, req CatalogRequest) (*models.CatalogItem, error) {
	it, err := s.Item(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := applyCatalog(it, req, false); err != nil {
		return nil, err
	}
	return it, s.Catalog.Save(ctx, it)
}

func (s *QuotationService) DeleteItem(ctx context.Context, u *models.User, id string) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	iid, err := parseID("item", id)
	if err != nil {
		return err
	}
	return s.Catalog.Delete(ctx, shopID, iid)
}

func (s *QuotationService) Items(ctx context.Context, u *models.User, search string) ([]models.CatalogItem, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	return s.Catalog.List(ctx, shopID, search)
}

func applyCatalog(it *models.CatalogItem, req CatalogRequest, requireAll bool) error {
	if req.Description != nil || requireAll {
		desc := ""
		if req.Description != nil {
			desc = strings.TrimSpace(*req.Description)
		}
		if desc == "" {
			return apperr.Invalid("description", "This field is required.")
		}
		it.Description = desc
	}
	setString(&it.HSNCode, req.HSNCode)
	if req.DefaultRate != nil {
		if req.DefaultRate.IsNegative() {
			return apperr.Invalid("default_rate", "Must not be negative.")
		}
		it.DefaultRate = decimal.Ptr(*req.DefaultRate)
	}
	return nil
}
