// Package handler exposes the shop services as a JSON API on gin, together
// with the public gallery, shared documents and the payment webhook.
package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/logger"
	"stitchdesk/internal/models"
	"stitchdesk/internal/render"
	"stitchdesk/internal/repository"
	"stitchdesk/internal/service"
)

// Documents renders invoice PDFs. *render.Renderer satisfies it.
type Documents interface {
	InvoicePDF(inv *models.Invoice, shop *models.Shop) ([]byte, error)
	POSBill(inv *models.Invoice, shop *models.Shop) ([]byte, error)
}

type Deps struct {
	Services      *service.Services
	Documents     Documents
	Log           *logger.Logger
	Ping          func(ctx context.Context) error
	SessionSecret string
	MediaDir      string
}

type Handler struct {
	svc  *service.Services
	docs Documents
	log  *logger.Logger
	ping func(ctx context.Context) error
}

const sessionName = "sd_session"

// New builds the router.
func New(d Deps) *gin.Engine {
	registerValidators()
	if d.Log == nil {
		d.Log = logger.New("http")
	}
	h := &Handler{svc: d.Services, docs: d.Documents, log: d.Log, ping: d.Ping}

	r := gin.New()
	r.Use(gin.Recovery(), logger.Gin(d.Log))

	secret := d.SessionSecret
	if secret == "" {
		secret = "dev_fallback_secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 14 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))

	r.SetHTMLTemplate(render.Templates())
	if d.MediaDir != "" {
		r.Static("/media", d.MediaDir)
	}

	r.GET("/health", h.health)
	r.GET("/gallery/:shopId", h.publicGallery)
	r.GET("/gallery/:shopId/items/:itemId", h.publicGalleryItem)

	api := r.Group("/api")
	api.GET("/public/gallery/:shopId", h.publicGallery)
	api.GET("/public/gallery/:shopId/items/:itemId", h.publicGalleryItem)
	api.GET("/d/:token", h.sharedDocument)
	api.GET("/subscriptions/plans", h.plans)
	api.POST("/subscriptions/webhook", h.webhook)

	h.authRoutes(api)

	authed := api.Group("", h.authenticate, h.ensureShop)
	h.subscriptionRoutes(authed)
	h.adminRoutes(authed.Group("/subscriptions/admin", h.requireSuperuser))

	gated := authed.Group("", h.requireSubscription)
	h.settingsRoutes(gated)
	h.customerRoutes(gated)
	h.measurementRoutes(gated)
	h.orderRoutes(gated)
	h.invoiceRoutes(gated)
	h.quotationRoutes(gated)
	h.inventoryRoutes(gated)
	h.galleryRoutes(gated)

	return r
}

func (h *Handler) health(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "db": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// respondError renders err with the status its type maps to. Anything
// untyped is logged and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	var (
		v  *apperr.Validation
		st *apperr.Status
	)
	code := apperr.HTTPStatus(err)
	switch {
	case errors.As(err, &v):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": v.Fields})
	case errors.As(err, &st):
		body := gin.H{"error": st.Msg}
		for k, val := range st.Details {
			body[k] = val
		}
		c.AbortWithStatusJSON(st.Code, body)
	case code == http.StatusInternalServerError:
		_ = c.Error(err)
		c.AbortWithStatusJSON(code, gin.H{"error": "internal error"})
	default:
		c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
	}
}

// bind decodes the JSON body into dst. Validation failures come back keyed
// by the JSON field name.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

// bindForm is bind for endpoints that also accept multipart uploads.
func bindForm(c *gin.Context, dst any) bool {
	if !isMultipart(c) {
		return bind(c, dst)
	}
	if err := c.ShouldBind(dst); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// upload returns the optional file in field. A request without it is fine.
func upload(c *gin.Context, field string) *multipart.FileHeader {
	if !isMultipart(c) {
		return nil
	}
	fh, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return fh
}

func currentUser(c *gin.Context) *models.User {
	u, _ := c.MustGet(userKey).(*models.User)
	return u
}

func pageRequest(c *gin.Context) repository.PageRequest {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return repository.PageRequest{Page: page, PageSize: size}.Normalize()
}

// queryBool reads an optional boolean filter.
func queryBool(c *gin.Context, key string) *bool {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return nil
	}
	b := strings.EqualFold(v, "true") || v == "1"
	return &b
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		respondError(c, apperr.NewNotFound(name, c.Param(name)))
		return 0, false
	}
	return uint(n), true
}

// reply writes v or the error.
func reply(c *gin.Context, code int, v any, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(code, v)
}

func noContent(c *gin.Context, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// attachment sends a generated file.
func attachment(c *gin.Context, contentType, name string, body []byte, inline bool) {
	disp := "attachment"
	if inline {
		disp = "inline"
	}
	c.Header("Content-Disposition", disp+`; filename="`+name+`"`)
	c.Data(http.StatusOK, contentType, body)
}
