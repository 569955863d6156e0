package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stitchdesk/internal/service"
)

func (h *Handler) settingsRoutes(api *gin.RouterGroup) {
	g := api.Group("/settings")
	g.GET("", h.allSettings)
	g.GET("/business", h.allSettings)
	g.PATCH("/business", h.updateBusiness)
	g.PUT("/business", h.updateBusiness)
	g.GET("/order", h.allSettings)
	g.PATCH("/order", h.updateOrderSettings)
	g.PUT("/order", h.updateOrderSettings)
	g.GET("/invoice", h.allSettings)
	g.PATCH("/invoice", h.updateInvoiceSettings)
	g.PUT("/invoice", h.updateInvoiceSettings)
	g.GET("/payment-info", h.paymentInfo)
	g.PATCH("/payment-info", h.updatePaymentInfo)
	g.PUT("/payment-info", h.updatePaymentInfo)
	g.PATCH("/prefixes", h.updatePrefixes)
	g.POST("/prefixes", h.updatePrefixes)

	g.GET("/payment-methods", h.paymentMethods)
	g.POST("/payment-methods", h.createPaymentMethod)
	g.PATCH("/payment-methods/:id", h.updatePaymentMethod)
	g.PUT("/payment-methods/:id", h.updatePaymentMethod)
	g.DELETE("/payment-methods/:id", h.deletePaymentMethod)

	g.GET("/staff", h.staff)
	g.POST("/staff", h.createStaff)

	g.POST("/security/change-password", h.changePassword)
	g.POST("/security/2fa/toggle", h.toggle2FA)
	g.POST("/security/2fa/verify", h.verify2FA)
}

func (h *Handler) allSettings(c *gin.Context) {
	shop, err := h.svc.Settings.Shop(c.Request.Context(), currentUser(c))
	reply(c, http.StatusOK, shop, err)
}

func (h *Handler) updateBusiness(c *gin.Context) {
	var req service.BusinessSettings
	if !bindForm(c, &req) {
		return
	}
	shop, err := h.svc.Settings.UpdateBusiness(c.Request.Context(), currentUser(c), req, upload(c, "logo"))
	reply(c, http.StatusOK, shop, err)
}

func (h *Handler) updateOrderSettings(c *gin.Context) {
	var req service.OrderSettings
	if !bind(c, &req) {
		return
	}
	shop, err := h.svc.Settings.UpdateOrder(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusOK, shop, err)
}

func (h *Handler) updateInvoiceSettings(c *gin.Context) {
	var req service.InvoiceSettings
	if !bind(c, &req) {
		return
	}
	shop, err := h.svc.Settings.UpdateInvoice(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusOK, shop, err)
}

func (h *Handler) paymentInfo(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c).PaymentInfo)
}

func (h *Handler) updatePaymentInfo(c *gin.Context) {
	var req service.PaymentInfoRequest
	if !bind(c, &req) {
		return
	}
	info, err := h.svc.Settings.UpdatePaymentInfo(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusOK, info, err)
}

func (h *Handler) updatePrefixes(c *gin.Context) {
	var req service.PrefixSettings
	if !bind(c, &req) {
		return
	}
	shop, err := h.svc.Settings.UpdatePrefixes(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotation_prefix": shop.QuotationPrefix, "invoice_prefix": shop.InvoicePrefix})
}

func (h *Handler) paymentMethods(c *gin.Context) {
	pms, err := h.svc.Settings.PaymentMethods(c.Request.Context(), currentUser(c))
	reply(c, http.StatusOK, pms, err)
}

func (h *Handler) createPaymentMethod(c *gin.Context) {
	var req service.PaymentMethodRequest
	if !bind(c, &req) {
		return
	}
	pm, err := h.svc.Settings.CreatePaymentMethod(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusCreated, pm, err)
}

func (h *Handler) updatePaymentMethod(c *gin.Context) {
	var req service.PaymentMethodRequest
	if !bind(c, &req) {
		return
	}
	pm, err := h.svc.Settings.UpdatePaymentMethod(c.Request.Context(), currentUser(c), c.Param("id"), req)
	reply(c, http.StatusOK, pm, err)
}

func (h *Handler) deletePaymentMethod(c *gin.Context) {
	noContent(c, h.svc.Settings.DeletePaymentMethod(c.Request.Context(), currentUser(c), c.Param("id")))
}

func (h *Handler) staff(c *gin.Context) {
	users, err := h.svc.Settings.Staff(c.Request.Context(), currentUser(c))
	reply(c, http.StatusOK, users, err)
}

func (h *Handler) createStaff(c *gin.Context) {
	var req service.StaffRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.svc.Settings.CreateStaff(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusCreated, u, err)
}
