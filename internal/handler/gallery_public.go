package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"stitchdesk/internal/models"
	"stitchdesk/internal/service"
)

const headerGalleryPassword = "X-Gallery-Password"

func galleryPassword(c *gin.Context) string {
	if p := c.Query("password"); p != "" {
		return p
	}
	return c.GetHeader(headerGalleryPassword)
}

func (h *Handler) publicGallery(c *gin.Context) {
	shopID := c.Param("shopId")
	sess := sessions.Default(c)
	key := "gallery_visit_" + shopID
	today := time.Now().UTC().Format(models.DateLayout)
	last, _ := sess.Get(key).(string)

	g, err := h.svc.Gallery.Public(c.Request.Context(), service.PublicRequest{
		ShopID:     shopID,
		Category:   c.Query("category"),
		Password:   galleryPassword(c),
		NewVisitor: last != today,
	})
	// one unique visitor per session per day
	if err == nil && last != today {
		sess.Set(key, today)
		_ = sess.Save()
	}
	reply(c, http.StatusOK, g, err)
}

func (h *Handler) publicGalleryItem(c *gin.Context) {
	it, err := h.svc.Gallery.PublicItem(c.Request.Context(), c.Param("shopId"), c.Param("itemId"), galleryPassword(c))
	reply(c, http.StatusOK, it, err)
}
