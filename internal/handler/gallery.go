package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/service"
)

func (h *Handler) galleryRoutes(api *gin.RouterGroup) {
	g := api.Group("/gallery")

	g.GET("/categories", h.listGalleryCategories)
	g.POST("/categories", h.createGalleryCategory)
	g.POST("/categories/reorder", h.reorderGalleryCategories)
	g.GET("/categories/:id", h.getGalleryCategory)
	g.PUT("/categories/:id", h.updateGalleryCategory(true))
	g.PATCH("/categories/:id", h.updateGalleryCategory(false))
	g.DELETE("/categories/:id", h.deleteGalleryCategory)
	g.POST("/categories/:id/toggle-active", h.toggleGalleryCategory)

	g.GET("/items", h.listGalleryItems)
	g.POST("/items", h.createGalleryItem)
	g.GET("/items/:id", h.getGalleryItem)
	g.PUT("/items/:id", h.updateGalleryItem(true))
	g.PATCH("/items/:id", h.updateGalleryItem(false))
	g.DELETE("/items/:id", h.deleteGalleryItem)
	g.POST("/items/:id/toggle-featured", h.toggleFeatured)
	g.POST("/items/:id/toggle-published", h.togglePublished)
	g.POST("/items/:id/images", h.addGalleryImages)
	g.POST("/items/:id/add-images", h.addGalleryImages)
	g.POST("/items/:id/images/reorder", h.reorderGalleryImages)
	g.DELETE("/items/:id/images/:imageId", h.deleteGalleryImage)

	g.GET("/settings", h.gallerySettings)
	g.PATCH("/settings", h.updateGallerySettings)
	g.PUT("/settings", h.updateGallerySettings)

	g.GET("/analytics", h.galleryAnalytics)
	g.GET("/analytics/summary", h.galleryAnalyticsSummary)
}

func (h *Handler) listGalleryCategories(c *gin.Context) {
	cs, err := h.svc.Gallery.Categories(c.Request.Context(), currentUser(c))
	reply(c, http.StatusOK, cs, err)
}

func (h *Handler) createGalleryCategory(c *gin.Context) {
	var req service.GalleryCategoryRequest
	if !bindForm(c, &req) {
		return
	}
	cat, err := h.svc.Gallery.CreateCategory(c.Request.Context(), currentUser(c), req, upload(c, "cover_image"))
	reply(c, http.StatusCreated, cat, err)
}

func (h *Handler) getGalleryCategory(c *gin.Context) {
	cat, err := h.svc.Gallery.Category(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, cat, err)
}

func (h *Handler) updateGalleryCategory(full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.GalleryCategoryRequest
		if !bindForm(c, &req) {
			return
		}
		cat, err := h.svc.Gallery.UpdateCategory(c.Request.Context(), currentUser(c), c.Param("id"), req, upload(c, "cover_image"), full)
		reply(c, http.StatusOK, cat, err)
	}
}

func (h *Handler) deleteGalleryCategory(c *gin.Context) {
	noContent(c, h.svc.Gallery.DeleteCategory(c.Request.Context(), currentUser(c), c.Param("id")))
}

func (h *Handler) reorderGalleryCategories(c *gin.Context) {
	var req service.ReorderRequest
	if !bind(c, &req) {
		return
	}
	err := h.svc.Gallery.ReorderCategories(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusOK, gin.H{"message": "Categories reordered successfully"}, err)
}

func (h *Handler) toggleGalleryCategory(c *gin.Context) {
	cat, err := h.svc.Gallery.ToggleCategory(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, cat, err)
}

func (h *Handler) listGalleryItems(c *gin.Context) {
	q := service.GalleryQuery{
		Category:    c.Query("category"),
		IsPublished: queryBool(c, "is_published"),
		IsFeatured:  queryBool(c, "is_featured"),
	}
	page, err := h.svc.Gallery.Items(c.Request.Context(), currentUser(c), q, pageRequest(c))
	reply(c, http.StatusOK, page, err)
}

func (h *Handler) createGalleryItem(c *gin.Context) {
	var req service.GalleryItemRequest
	if !bindForm(c, &req) {
		return
	}
	ctx := c.Request.Context()
	it, err := h.svc.Gallery.CreateItem(ctx, currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if files := imageFiles(c); len(files) > 0 {
		if it, err = h.svc.Gallery.AddImages(ctx, currentUser(c), it.ID.String(), files); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusCreated, it)
}

func (h *Handler) getGalleryItem(c *gin.Context) {
	it, err := h.svc.Gallery.Item(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, it, err)
}

func (h *Handler) updateGalleryItem(full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.GalleryItemRequest
		if !bindForm(c, &req) {
			return
		}
		it, err := h.svc.Gallery.UpdateItem(c.Request.Context(), currentUser(c), c.Param("id"), req, full)
		reply(c, http.StatusOK, it, err)
	}
}

func (h *Handler) deleteGalleryItem(c *gin.Context) {
	noContent(c, h.svc.Gallery.DeleteItem(c.Request.Context(), currentUser(c), c.Param("id")))
}

func (h *Handler) toggleFeatured(c *gin.Context) {
	it, err := h.svc.Gallery.ToggleFeatured(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, it, err)
}

func (h *Handler) togglePublished(c *gin.Context) {
	it, err := h.svc.Gallery.TogglePublished(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, it, err)
}

// imageFiles collects uploads sent as images[] or images.
func imageFiles(c *gin.Context) []*multipart.FileHeader {
	if !isMultipart(c) {
		return nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	files := form.File["images[]"]
	return append(files, form.File["images"]...)
}

func (h *Handler) addGalleryImages(c *gin.Context) {
	files := imageFiles(c)
	if len(files) == 0 {
		respondError(c, apperr.BadRequest("No images provided"))
		return
	}
	it, err := h.svc.Gallery.AddImages(c.Request.Context(), currentUser(c), c.Param("id"), files)
	reply(c, http.StatusOK, it, err)
}

func (h *Handler) reorderGalleryImages(c *gin.Context) {
	var req service.ReorderRequest
	if !bind(c, &req) {
		return
	}
	it, err := h.svc.Gallery.ReorderImages(c.Request.Context(), currentUser(c), c.Param("id"), req)
	reply(c, http.StatusOK, it, err)
}

func (h *Handler) deleteGalleryImage(c *gin.Context) {
	noContent(c, h.svc.Gallery.DeleteImage(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("imageId")))
}

func (h *Handler) gallerySettings(c *gin.Context) {
	st, err := h.svc.Gallery.Settings(c.Request.Context(), currentUser(c))
	reply(c, http.StatusOK, st, err)
}

func (h *Handler) updateGallerySettings(c *gin.Context) {
	var req service.GallerySettingsRequest
	if !bind(c, &req) {
		return
	}
	st, err := h.svc.Gallery.UpdateSettings(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusOK, st, err)
}

func (h *Handler) galleryAnalytics(c *gin.Context) {
	rows, err := h.svc.Gallery.Analytics(c.Request.Context(), currentUser(c))
	reply(c, http.StatusOK, rows, err)
}

func (h *Handler) galleryAnalyticsSummary(c *gin.Context) {
	sum, err := h.svc.Gallery.AnalyticsSummary(c.Request.Context(), currentUser(c))
	reply(c, http.StatusOK, sum, err)
}
