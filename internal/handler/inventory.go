package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stitchdesk/internal/service"
)

func (h *Handler) inventoryRoutes(api *gin.RouterGroup) {
	g := api.Group("/inventory")
	g.GET("/dashboard", h.inventoryDashboard)

	g.GET("/categories", h.listInventoryCategories)
	g.POST("/categories", h.createInventoryCategory)
	g.GET("/categories/:id", h.getInventoryCategory)
	g.PUT("/categories/:id", h.updateInventoryCategory(true))
	g.PATCH("/categories/:id", h.updateInventoryCategory(false))
	g.DELETE("/categories/:id", h.deleteInventoryCategory)

	g.GET("/items", h.listInventoryItems)
	g.POST("/items", h.createInventoryItem)
	g.GET("/items/:id", h.getInventoryItem)
	g.PUT("/items/:id", h.updateInventoryItem(true))
	g.PATCH("/items/:id", h.updateInventoryItem(false))
	g.DELETE("/items/:id", h.deleteInventoryItem)
	g.POST("/items/:id/stock-in", h.stockIn)
	g.POST("/items/:id/adjust-stock", h.adjustStock)
	g.GET("/items/:id/history", h.stockHistory)

	g.GET("/order-materials", h.listOrderMaterials)
	g.DELETE("/order-materials/:id", h.deleteOrderMaterial)
}

func (h *Handler) inventoryDashboard(c *gin.Context) {
	d, err := h.svc.Inventory.Dashboard(c.Request.Context(), currentUser(c))
	reply(c, http.StatusOK, d, err)
}

func (h *Handler) listInventoryCategories(c *gin.Context) {
	cs, err := h.svc.Inventory.Categories(c.Request.Context(), currentUser(c))
	reply(c, http.StatusOK, cs, err)
}

func (h *Handler) createInventoryCategory(c *gin.Context) {
	var req service.CategoryRequest
	if !bind(c, &req) {
		return
	}
	cat, err := h.svc.Inventory.CreateCategory(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusCreated, cat, err)
}

func (h *Handler) getInventoryCategory(c *gin.Context) {
	cat, err := h.svc.Inventory.Category(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, cat, err)
}

func (h *Handler) updateInventoryCategory(full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CategoryRequest
		if !bind(c, &req) {
			return
		}
		cat, err := h.svc.Inventory.UpdateCategory(c.Request.Context(), currentUser(c), c.Param("id"), req, full)
		reply(c, http.StatusOK, cat, err)
	}
}

func (h *Handler) deleteInventoryCategory(c *gin.Context) {
	noContent(c, h.svc.Inventory.DeleteCategory(c.Request.Context(), currentUser(c), c.Param("id")))
}

func (h *Handler) listInventoryItems(c *gin.Context) {
	q := service.ItemQuery{
		Category: c.Query("category"),
		LowStock: c.Query("low_stock") == "true",
		Search:   c.Query("search"),
	}
	page, err := h.svc.Inventory.Items(c.Request.Context(), currentUser(c), q, pageRequest(c))
	reply(c, http.StatusOK, page, err)
}

func (h *Handler) createInventoryItem(c *gin.Context) {
	var req service.InventoryItemRequest
	if !bind(c, &req) {
		return
	}
	it, err := h.svc.Inventory.CreateItem(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusCreated, it, err)
}

func (h *Handler) getInventoryItem(c *gin.Context) {
	it, err := h.svc.Inventory.Item(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, it, err)
}

func (h *Handler) updateInventoryItem(full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.InventoryItemRequest
		if !bind(c, &req) {
			return
		}
		it, err := h.svc.Inventory.UpdateItem(c.Request.Context(), currentUser(c), c.Param("id"), req, full)
		reply(c, http.StatusOK, it, err)
	}
}

func (h *Handler) deleteInventoryItem(c *gin.Context) {
	noContent(c, h.svc.Inventory.DeleteItem(c.Request.Context(), currentUser(c), c.Param("id")))
}

func (h *Handler) stockIn(c *gin.Context) {
	var req service.StockInRequest
	if !bind(c, &req) {
		return
	}
	it, err := h.svc.Inventory.StockIn(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Added " + req.Quantity.String() + " " + string(it.Unit) + " to stock",
		"current_stock": it.CurrentStock,
	})
}

func (h *Handler) adjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if !bind(c, &req) {
		return
	}
	it, err := h.svc.Inventory.AdjustStock(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock adjusted successfully", "current_stock": it.CurrentStock})
}

func (h *Handler) stockHistory(c *gin.Context) {
	hist, err := h.svc.Inventory.History(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, hist, err)
}

func (h *Handler) listOrderMaterials(c *gin.Context) {
	ms, err := h.svc.Inventory.Materials(c.Request.Context(), currentUser(c), c.Query("order"))
	reply(c, http.StatusOK, ms, err)
}

func (h *Handler) deleteOrderMaterial(c *gin.Context) {
	noContent(c, h.svc.Inventory.DeleteMaterial(c.Request.Context(), currentUser(c), c.Param("id")))
}
