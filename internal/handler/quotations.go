package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stitchdesk/internal/repository"
	"stitchdesk/internal/service"
)

func (h *Handler) quotationRoutes(api *gin.RouterGroup) {
	q := api.Group("/quotations")
	q.GET("", h.listQuotations)
	q.POST("", h.createQuotation)
	q.GET("/:id", h.getQuotation)
	q.PUT("/:id", h.updateQuotation)
	q.PATCH("/:id", h.updateQuotation)
	q.DELETE("/:id", h.deleteQuotation)
	q.POST("/:id/void", h.voidQuotation)
	q.GET("/:id/pdf", h.quotationPDF)
	q.GET("/:id/whatsapp", h.quotationWhatsApp)

	api.POST("/bulk-export-count", h.exportCount)
	api.POST("/bulk-export", h.export)

	it := api.Group("/items")
	it.GET("", h.listCatalog)
	it.POST("", h.createCatalogItem)
	it.GET("/:id", h.getCatalogItem)
	it.PUT("/:id", h.updateCatalogItem)
	it.PATCH("/:id", h.updateCatalogItem)
	it.DELETE("/:id", h.deleteCatalogItem)
}

func (h *Handler) listQuotations(c *gin.Context) {
	f := repository.QuotationFilter{DocumentType: c.Query("document_type"), Search: c.Query("search")}
	page, err := h.svc.Quotations.List(c.Request.Context(), currentUser(c), f, pageRequest(c))
	reply(c, http.StatusOK, page, err)
}

func (h *Handler) createQuotation(c *gin.Context) {
	var req service.QuotationRequest
	if !bind(c, &req) {
		return
	}
	q, err := h.svc.Quotations.Create(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusCreated, q, err)
}

func (h *Handler) getQuotation(c *gin.Context) {
	q, err := h.svc.Quotations.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, q, err)
}

func (h *Handler) updateQuotation(c *gin.Context) {
	var req service.QuotationRequest
	if !bind(c, &req) {
		return
	}
	q, err := h.svc.Quotations.Update(c.Request.Context(), currentUser(c), c.Param("id"), req)
	reply(c, http.StatusOK, q, err)
}

func (h *Handler) deleteQuotation(c *gin.Context) {
	noContent(c, h.svc.Quotations.Delete(c.Request.Context(), currentUser(c), c.Param("id")))
}

func (h *Handler) voidQuotation(c *gin.Context) {
	q, err := h.svc.Quotations.Void(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice voided successfully", "voided": q.Voided})
}

func (h *Handler) quotationPDF(c *gin.Context) {
	ctx := c.Request.Context()
	q, err := h.svc.Quotations.Get(ctx, currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := h.svc.Quotations.PDF(ctx, q)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, "application/pdf", safeFileName(q.QuotationNo)+".pdf", b, false)
}

// sharedDocument serves a document to anyone holding its share token.
func (h *Handler) sharedDocument(c *gin.Context) {
	ctx := c.Request.Context()
	q, err := h.svc.Quotations.Shared(ctx, c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := h.svc.Quotations.PDF(ctx, q)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, "application/pdf", safeFileName(q.QuotationNo)+".pdf", b, true)
}

func (h *Handler) quotationWhatsApp(c *gin.Context) {
	link, err := h.svc.Quotations.WhatsApp(c.Request.Context(), currentUser(c), c.Param("id"), requestBaseURL(c))
	reply(c, http.StatusOK, link, err)
}

// requestBaseURL is the scheme and host the client used.
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func (h *Handler) exportCount(c *gin.Context) {
	var req service.ExportRequest
	if !bind(c, &req) {
		return
	}
	n, err := h.svc.Quotations.ExportCount(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusOK, n, err)
}

func (h *Handler) export(c *gin.Context) {
	var req service.ExportRequest
	if !bind(c, &req) {
		return
	}
	name, b, err := h.svc.Quotations.Export(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, "application/zip", name, b, false)
}

func (h *Handler) listCatalog(c *gin.Context) {
	items, err := h.svc.Quotations.Items(c.Request.Context(), currentUser(c), c.Query("search"))
	reply(c, http.StatusOK, items, err)
}

func (h *Handler) createCatalogItem(c *gin.Context) {
	var req service.CatalogRequest
	if !bind(c, &req) {
		return
	}
	it, err := h.svc.Quotations.CreateItem(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusCreated, it, err)
}

func (h *Handler) getCatalogItem(c *gin.Context) {
	it, err := h.svc.Quotations.Item(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, it, err)
}

func (h *Handler) updateCatalogItem(c *gin.Context) {
	var req service.CatalogRequest
	if !bind(c, &req) {
		return
	}
	it, err := h.svc.Quotations.UpdateItem(c.Request.Context(), currentUser(c), c.Param("id"), req)
	reply(c, http.StatusOK, it, err)
}

func (h *Handler) deleteCatalogItem(c *gin.Context) {
	noContent(c, h.svc.Quotations.DeleteItem(c.Request.Context(), currentUser(c), c.Param("id")))
}
