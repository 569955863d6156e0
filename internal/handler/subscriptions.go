package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/models"
	"stitchdesk/internal/repository"
	"stitchdesk/internal/service"
)

const maxWebhookBody = 1 << 20

func (h *Handler) subscriptionRoutes(api *gin.RouterGroup) {
	g := api.Group("/subscriptions")
	g.GET("/my-subscription", h.mySubscription)
	g.POST("/subscribe", h.subscribe)
	g.POST("/verify-payment", h.verifyPayment)
	g.POST("/cancel", h.requireSubscription, h.cancelSubscription)
	g.GET("/usage", h.requireSubscription, h.usage)
}

func (h *Handler) plans(c *gin.Context) {
	ps, err := h.svc.Subscriptions.Plans(c.Request.Context())
	reply(c, http.StatusOK, ps, err)
}

func (h *Handler) mySubscription(c *gin.Context) {
	v, err := h.svc.Subscriptions.Mine(c.Request.Context(), currentUser(c))
	reply(c, http.StatusOK, v, err)
}

func (h *Handler) subscribe(c *gin.Context) {
	var req service.SubscribeRequest
	if !bind(c, &req) {
		return
	}
	co, err := h.svc.Subscriptions.Subscribe(c.Request.Context(), currentUser(c), req)
	reply(c, http.StatusOK, co, err)
}

func (h *Handler) verifyPayment(c *gin.Context) {
	var req service.VerifyPaymentRequest
	if !bind(c, &req) {
		return
	}
	v, err := h.svc.Subscriptions.VerifyPayment(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment verified successfully", "subscription": v})
}

func (h *Handler) cancelSubscription(c *gin.Context) {
	v, err := h.svc.Subscriptions.Cancel(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subscription cancelled successfully", "subscription": v})
}

func (h *Handler) usage(c *gin.Context) {
	u, err := h.svc.Subscriptions.MyUsage(c.Request.Context(), currentUser(c))
	reply(c, http.StatusOK, u, err)
}

// webhook needs the raw body for the signature check.
func (h *Handler) webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondError(c, apperr.BadRequest("Invalid payload"))
		return
	}
	err = h.svc.Subscriptions.Webhook(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature"))
	reply(c, http.StatusOK, gin.H{"status": "ok"}, err)
}

func (h *Handler) adminRoutes(g *gin.RouterGroup) {
	g.GET("/plans", h.adminPlans)
	g.POST("/plans", h.adminCreatePlan)
	g.GET("/plans/:id", h.adminPlan)
	g.PUT("/plans/:id", h.adminUpdatePlan(true))
	g.PATCH("/plans/:id", h.adminUpdatePlan(false))
	g.DELETE("/plans/:id", h.adminDeletePlan)

	g.GET("/subscriptions", h.adminSubscriptions)
	g.GET("/subscriptions/user/:userId", h.adminUserSubscription)
	g.PATCH("/subscriptions/user/:userId", h.adminPatchSubscription)
	g.PUT("/subscriptions/user/:userId", h.adminPatchSubscription)
	g.POST("/subscriptions/user/:userId/assign-plan", h.adminAssignPlan)

	g.POST("/users/create", h.adminCreateUser)
	g.GET("/payments", h.adminPayments)
	g.GET("/stats", h.adminStats)
}

func (h *Handler) adminPlans(c *gin.Context) {
	ps, err := h.svc.Admin.Plans(c.Request.Context())
	reply(c, http.StatusOK, ps, err)
}

func (h *Handler) adminCreatePlan(c *gin.Context) {
	var req service.PlanRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.svc.Admin.CreatePlan(c.Request.Context(), req)
	reply(c, http.StatusCreated, p, err)
}

func (h *Handler) adminPlan(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Admin.Plan(c.Request.Context(), id)
	reply(c, http.StatusOK, p, err)
}

func (h *Handler) adminUpdatePlan(full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		var req service.PlanRequest
		if !bind(c, &req) {
			return
		}
		p, err := h.svc.Admin.UpdatePlan(c.Request.Context(), id, req, full)
		reply(c, http.StatusOK, p, err)
	}
}

func (h *Handler) adminDeletePlan(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	err := h.svc.Admin.DeletePlan(c.Request.Context(), id)
	reply(c, http.StatusOK, gin.H{"message": "Plan deactivated successfully"}, err)
}

func (h *Handler) adminSubscriptions(c *gin.Context) {
	f := repository.SubscriptionFilter{
		Status:   models.SubscriptionStatus(c.Query("status")),
		PlanType: models.PlanType(c.Query("plan_type")),
	}
	page, err := h.svc.Admin.Subscriptions(c.Request.Context(), f, pageRequest(c))
	reply(c, http.StatusOK, page, err)
}

func (h *Handler) adminUserSubscription(c *gin.Context) {
	id, ok := uintParam(c, "userId")
	if !ok {
		return
	}
	sub, err := h.svc.Admin.UserSubscription(c.Request.Context(), id)
	reply(c, http.StatusOK, sub, err)
}

func (h *Handler) adminPatchSubscription(c *gin.Context) {
	id, ok := uintParam(c, "userId")
	if !ok {
		return
	}
	var req service.SubscriptionPatch
	if !bind(c, &req) {
		return
	}
	sub, err := h.svc.Admin.PatchSubscription(c.Request.Context(), id, req)
	reply(c, http.StatusOK, sub, err)
}

func (h *Handler) adminAssignPlan(c *gin.Context) {
	id, ok := uintParam(c, "userId")
	if !ok {
		return
	}
	var req service.AssignPlanRequest
	if !bind(c, &req) {
		return
	}
	sub, err := h.svc.Admin.AssignPlan(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan assigned successfully", "subscription": sub})
}

func (h *Handler) adminCreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.Admin.CreateUser(c.Request.Context(), req)
	reply(c, http.StatusCreated, out, err)
}

func (h *Handler) adminPayments(c *gin.Context) {
	f := repository.PaymentFilter{Status: models.PaymentStatusValue(c.Query("status"))}
	if v := c.Query("subscription_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondError(c, apperr.Invalid("subscription_id", "Must be an integer."))
			return
		}
		f.SubscriptionID = uint(n)
	}
	page, err := h.svc.Admin.Payments(c.Request.Context(), f, pageRequest(c))
	reply(c, http.StatusOK, page, err)
}

func (h *Handler) adminStats(c *gin.Context) {
	st, err := h.svc.Admin.Stats(c.Request.Context())
	reply(c, http.StatusOK, st, err)
}
