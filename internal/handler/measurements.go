package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/models"
	"stitchdesk/internal/repository"
	"stitchdesk/internal/service"
)

func (h *Handler) measurementRoutes(api *gin.RouterGroup) {
	t := api.Group("/measurement-templates")
	t.GET("", h.listTemplates)
	t.POST("", h.createTemplate)
	t.GET("/:id", h.getTemplate)
	t.PUT("/:id", h.updateTemplate(true))
	t.PATCH("/:id", h.updateTemplate(false))
	t.DELETE("/:id", h.deleteTemplate)

	m := api.Group("/measurements")
	m.GET("", h.listMeasurements)
	m.POST("", h.createMeasurement)
	m.GET("/:id", h.getMeasurement)
	m.PUT("/:id", h.updateMeasurement(true))
	m.PATCH("/:id", h.updateMeasurement(false))
	m.DELETE("/:id", h.deleteMeasurement)
}

// bindTemplate reads a template from JSON, or from a multipart form where
// fields arrives as a JSON string next to the image.
func bindTemplate(c *gin.Context) (service.TemplateRequest, bool) {
	var req service.TemplateRequest
	if !bindForm(c, &req) {
		return req, false
	}
	if isMultipart(c) {
		if raw, ok := c.GetPostForm("fields"); ok {
			var fields []models.TemplateField
			if err := json.Unmarshal([]byte(raw), &fields); err != nil {
				respondError(c, apperr.Invalid("fields", "Must be a JSON list."))
				return req, false
			}
			req.Fields = &fields
		}
	}
	return req, true
}

func (h *Handler) listTemplates(c *gin.Context) {
	f := repository.TemplateFilter{
		ItemType:   models.ItemType(c.Query("item_type")),
		ActiveOnly: c.Query("active_only") == "true",
	}
	ts, err := h.svc.Measurements.Templates(c.Request.Context(), currentUser(c), f)
	reply(c, http.StatusOK, ts, err)
}

func (h *Handler) createTemplate(c *gin.Context) {
	req, ok := bindTemplate(c)
	if !ok {
		return
	}
	t, err := h.svc.Measurements.CreateTemplate(c.Request.Context(), currentUser(c), req, upload(c, "image"))
	reply(c, http.StatusCreated, t, err)
}

func (h *Handler) getTemplate(c *gin.Context) {
	t, err := h.svc.Measurements.Template(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, t, err)
}

func (h *Handler) updateTemplate(full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindTemplate(c)
		if !ok {
			return
		}
		t, err := h.svc.Measurements.UpdateTemplate(c.Request.Context(), currentUser(c), c.Param("id"), req, upload(c, "image"), full)
		reply(c, http.StatusOK, t, err)
	}
}

func (h *Handler) deleteTemplate(c *gin.Context) {
	noContent(c, h.svc.Measurements.DeleteTemplate(c.Request.Context(), currentUser(c), c.Param("id")))
}

func (h *Handler) listMeasurements(c *gin.Context) {
	page, err := h.svc.Measurements.List(c.Request.Context(), currentUser(c), c.Query("customer"), pageRequest(c))
	reply(c, http.StatusOK, page, err)
}

func (h *Handler) createMeasurement(c *gin.Context) {
	var req service.MeasurementRequest
	if !bind(c, &req) {
		return
	}
	m, err := h.svc.Measurements.Create(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusCreated, m, err)
}

func (h *Handler) getMeasurement(c *gin.Context) {
	m, err := h.svc.Measurements.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	reply(c, http.StatusOK, m, err)
}

func (h *Handler) updateMeasurement(full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.MeasurementRequest
		if !bind(c, &req) {
			return
		}
		m, err := h.svc.Measurements.Update(c.Request.Context(), currentUser(c), c.Param("id"), req, full)
		reply(c, http.StatusOK, m, err)
	}
}

func (h *Handler) deleteMeasurement(c *gin.Context) {
	noContent(c, h.svc.Measurements.Delete(c.Request.Context(), currentUser(c), c.Param("id")))
}
