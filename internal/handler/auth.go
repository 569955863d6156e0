package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stitchdesk/internal/service"
)

type emailBody struct {
	Email string `json:"email"`
}

type otpBody struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resetBody struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

type changePasswordBody struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type toggleBody struct {
	Enable bool `json:"enable"`
}

func (h *Handler) authRoutes(api *gin.RouterGroup) {
	g := api.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.POST("/2fa/send-otp", h.sendLoginOTP)
	g.POST("/2fa/verify-otp", h.verifyLoginOTP)
	g.POST("/forgot-password", h.forgotPassword)
	g.POST("/reset-password", h.resetPassword)

	g.POST("/logout", h.authenticate, h.logout)
	g.GET("/me", h.authenticate, h.ensureShop, h.me)
}

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.Auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	startSession(c, res.User)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.Auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if !res.Requires2FA {
		startSession(c, res.User)
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Auth.Logout(c.Request.Context(), currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	endSession(c)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (h *Handler) sendLoginOTP(c *gin.Context) {
	var req emailBody
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Auth.SendLoginOTP(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to your email"})
}

func (h *Handler) verifyLoginOTP(c *gin.Context) {
	var req otpBody
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.Auth.VerifyLoginOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}
	startSession(c, res.User)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req emailBody
	if !bind(c, &req) {
		return
	}
	msg, err := h.svc.Auth.ForgotPassword(c.Request.Context(), req.Email)
	reply(c, http.StatusOK, gin.H{"message": msg}, err)
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetBody
	if !bind(c, &req) {
		return
	}
	err := h.svc.Auth.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword)
	reply(c, http.StatusOK, gin.H{"message": "Password reset successfully"}, err)
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordBody
	if !bind(c, &req) {
		return
	}
	err := h.svc.Auth.ChangePassword(c.Request.Context(), currentUser(c), req.CurrentPassword, req.NewPassword)
	reply(c, http.StatusOK, gin.H{"message": "Password changed successfully"}, err)
}

func (h *Handler) toggle2FA(c *gin.Context) {
	var req toggleBody
	if !bind(c, &req) {
		return
	}
	u := currentUser(c)
	msg, err := h.svc.Auth.Toggle2FA(c.Request.Context(), u, req.Enable)
	reply(c, http.StatusOK, gin.H{"message": msg, "is_2fa_enabled": u.Is2FAEnabled}, err)
}

func (h *Handler) verify2FA(c *gin.Context) {
	var req otpBody
	if !bind(c, &req) {
		return
	}
	err := h.svc.Auth.Verify2FA(c.Request.Context(), currentUser(c), req.OTP)
	reply(c, http.StatusOK, gin.H{"message": "2FA enabled successfully", "is_2fa_enabled": true}, err)
}
