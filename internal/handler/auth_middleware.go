package handler

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/models"
)

const (
	userKey       = "currentUser"
	sessionUserID = "user_id"
)

// bearerToken reads "Token <key>" or "Bearer <key>".
func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, key, ok := strings.Cut(h, " ")
	if !ok {
		return ""
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(key)
}

// authenticate resolves the caller from the Authorization header, falling
// back to the login session.
func (h *Handler) authenticate(c *gin.Context) {
	ctx := c.Request.Context()
	if tok := bearerToken(c); tok != "" {
		u, err := h.svc.Auth.Authenticate(ctx, tok)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(userKey, u)
		c.Next()
		return
	}

	sess := sessions.Default(c)
	id, ok := sess.Get(sessionUserID).(uint)
	if !ok || id == 0 {
		respondError(c, apperr.Unauthorized("Authentication credentials were not provided."))
		return
	}
	u, err := h.svc.Auth.UserByID(ctx, id)
	if apperr.IsNotFound(err) {
		sess.Delete(sessionUserID)
		_ = sess.Save()
		respondError(c, apperr.Unauthorized("Session expired."))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.Set(userKey, u)
	c.Next()
}

// ensureShop creates a shop for users that somehow have none.
func (h *Handler) ensureShop(c *gin.Context) {
	u := currentUser(c)
	if u.ShopID == nil {
		if _, err := h.svc.Settings.EnsureShop(c.Request.Context(), u); err != nil {
			respondError(c, err)
			return
		}
	}
	c.Next()
}

// requireSubscription blocks callers whose plan has lapsed. During the
// grace window only safe methods pass.
func (h *Handler) requireSubscription(c *gin.Context) {
	if err := h.svc.Subscriptions.Access(c.Request.Context(), currentUser(c), c.Request.Method); err != nil {
		respondError(c, err)
		return
	}
	c.Next()
}

func (h *Handler) requireSuperuser(c *gin.Context) {
	if !currentUser(c).IsSuperuser {
		respondError(c, apperr.Forbidden("You do not have permission to perform this action."))
		return
	}
	c.Next()
}

// startSession remembers u in the cookie session next to the token.
func startSession(c *gin.Context, u *models.User) {
	sess := sessions.Default(c)
	sess.Set(sessionUserID, u.ID)
	_ = sess.Save()
}

func endSession(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = sess.Save()
}
