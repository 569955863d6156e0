package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stitchdesk/internal/render"
	"stitchdesk/internal/service"
)

func (h *Handler) invoiceRoutes(api *gin.RouterGroup) {
	g := api.Group("/invoices")
	g.GET("", h.listInvoices)
	g.POST("", h.createInvoice)
	g.GET("/:id", h.getInvoice)
	g.PUT("/:id", h.updateInvoice)
	g.PATCH("/:id", h.updateInvoice)
	g.DELETE("/:id", h.deleteInvoice)
	g.POST("/:id/populate-from-order", h.populateInvoice)
	g.GET("/:id/pdf", h.invoicePDF)
	g.GET("/:id/pos-bill", h.posBill)
	g.GET("/:id/print", h.printInvoice)
}

func (h *Handler) listInvoices(c *gin.Context) {
	q := service.InvoiceQuery{Customer: c.Query("customer"), Order: c.Query("order"), Search: c.Query("search")}
	page, err := h.svc.Invoices.List(c.Request.Context(), currentUser(c), q, pageRequest(c))
	reply(c, http.StatusOK, page, err)
}

func (h *Handler) createInvoice(c *gin.Context) {
	var req service.InvoiceRequest
	if !bind(c, &req) {
		return
	}
	inv, err := h.svc.Invoices.Create(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusCreated, inv, err)
}

func (h *Handler) getInvoice(c *gin.Context) {
	inv, err := h.svc.Invoices.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, inv, err)
}

func (h *Handler) updateInvoice(c *gin.Context) {
	var req service.InvoiceRequest
	if !bind(c, &req) {
		return
	}
	inv, err := h.svc.Invoices.Update(c.Request.Context(), currentUser(c), c.Param("id"), req)
	reply(c, http.StatusOK, inv, err)
}

func (h *Handler) deleteInvoice(c *gin.Context) {
	noContent(c, h.svc.Invoices.Delete(c.Request.Context(), currentUser(c), c.Param("id")))
}

func (h *Handler) populateInvoice(c *gin.Context) {
	inv, err := h.svc.Invoices.PopulateFromOrder(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, inv, err)
}

func (h *Handler) invoicePDF(c *gin.Context) {
	inv, shop, err := h.svc.Invoices.Document(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := h.docs.InvoicePDF(inv, shop)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, "application/pdf", "Invoice_"+safeFileName(inv.InvoiceNumber)+".pdf", b, false)
}

func (h *Handler) posBill(c *gin.Context) {
	inv, shop, err := h.svc.Invoices.Document(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := h.docs.POSBill(inv, shop)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, "application/pdf", "POS_"+safeFileName(inv.InvoiceNumber)+".pdf", b, true)
}

func (h *Handler) printInvoice(c *gin.Context) {
	inv, shop, err := h.svc.Invoices.Document(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.HTML(http.StatusOK, render.TemplateName(shop), render.NewPrintView(inv, shop))
}

// safeFileName keeps letters, digits, dot, dash and underscore.
func safeFileName(s string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if out == "" {
		return "document"
	}
	return out
}
