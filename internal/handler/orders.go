package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stitchdesk/internal/models"
	"stitchdesk/internal/service"
)

type statusBody struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

type materialsBody struct {
	Materials []service.MaterialEntry `json:"materials"`
}

func (h *Handler) orderRoutes(api *gin.RouterGroup) {
	g := api.Group("/orders")
	g.GET("", h.listOrders)
	g.POST("", h.createOrder)
	g.GET("/:id", h.getOrder)
	g.PUT("/:id", h.updateOrder)
	g.PATCH("/:id", h.updateOrder)
	g.DELETE("/:id", h.deleteOrder)
	g.PATCH("/:id/status", h.changeOrderStatus)

	g.GET("/:id/materials", h.orderMaterials)
	g.POST("/:id/materials", h.addOrderMaterials)
	g.POST("/:id/materials/add", h.addOrderMaterials)
}

func (h *Handler) listOrders(c *gin.Context) {
	q := service.OrderQuery{Status: c.Query("status"), Customer: c.Query("customer"), Search: c.Query("search")}
	page, err := h.svc.Orders.List(c.Request.Context(), currentUser(c), q, pageRequest(c))
	reply(c, http.StatusOK, page, err)
}

func (h *Handler) createOrder(c *gin.Context) {
	var req service.OrderRequest
	if !bind(c, &req) {
		return
	}
	o, err := h.svc.Orders.Create(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusCreated, o, err)
}

func (h *Handler) getOrder(c *gin.Context) {
	o, err := h.svc.Orders.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, o, err)
}

func (h *Handler) updateOrder(c *gin.Context) {
	var req service.OrderRequest
	if !bind(c, &req) {
		return
	}
	o, err := h.svc.Orders.Update(c.Request.Context(), currentUser(c), c.Param("id"), req)
	reply(c, http.StatusOK, o, err)
}

func (h *Handler) deleteOrder(c *gin.Context) {
	noContent(c, h.svc.Orders.Delete(c.Request.Context(), currentUser(c), c.Param("id")))
}

func (h *Handler) changeOrderStatus(c *gin.Context) {
	var req statusBody
	if !bind(c, &req) {
		return
	}
	o, err := h.svc.Orders.ChangeStatus(c.Request.Context(), currentUser(c), c.Param("id"), req.Status)
	reply(c, http.StatusOK, o, err)
}

func (h *Handler) orderMaterials(c *gin.Context) {
	res, err := h.svc.Inventory.OrderMaterials(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, res, err)
}

func (h *Handler) addOrderMaterials(c *gin.Context) {
	var req materialsBody
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.Inventory.AddMaterials(c.Request.Context(), currentUser(c), c.Param("id"), req.Materials)
	reply(c, http.StatusCreated, res, err)
}
