package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stitchdesk/internal/service"
)

func (h *Handler) customerRoutes(api *gin.RouterGroup) {
	g := api.Group("/customers")
	g.GET("", h.listCustomers)
	g.POST("", h.createCustomer)
	g.GET("/:id", h.getCustomer)
	g.PUT("/:id", h.updateCustomer(true))
	g.PATCH("/:id", h.updateCustomer(false))
	g.DELETE("/:id", h.deleteCustomer)
}

func (h *Handler) listCustomers(c *gin.Context) {
	page, err := h.svc.Customers.List(c.Request.Context(), currentUser(c), c.Query("search"), pageRequest(c))
	reply(c, http.StatusOK, page, err)
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if !bind(c, &req) {
		return
	}
	cust, err := h.svc.Customers.Create(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusCreated, cust, err)
}

func (h *Handler) getCustomer(c *gin.Context) {
	cust, err := h.svc.Customers.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, cust, err)
}

// updateCustomer serves PUT (full) and PATCH (partial).
func (h *Handler) updateCustomer(full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CustomerRequest
		if !bind(c, &req) {
			return
		}
		cust, err := h.svc.Customers.Update(c.Request.Context(), currentUser(c), c.Param("id"), req, full)
		reply(c, http.StatusOK, cust, err)
	}
}

func (h *Handler) deleteCustomer(c *gin.Context) {
	noContent(c, h.svc.Customers.Delete(c.Request.Context(), currentUser(c), c.Param("id")))
}
