package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/service"
)

type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	h.logger.Info("Register request received", zap.String("client_ip", c.ClientIP()))

	var in service.RegisterInput
	if err := bindJSON(c, &in); err != nil {
		RespondError(c, h.logger, "Register", err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), in)
	if err != nil {
		RespondError(c, h.logger, "Register", err)
		return
	}

	h.logger.Info("Register: success", zap.Int64("user_id", user.ID))
	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	h.logger.Info("Login request received", zap.String("client_ip", c.ClientIP()))

	var in service.LoginInput
	if err := bindJSON(c, &in); err != nil {
		RespondError(c, h.logger, "Login", err)
		return
	}

	tokens, err := h.auth.Login(c.Request.Context(), in)
	if err != nil {
		RespondError(c, h.logger, "Login", err)
		return
	}

	h.logger.Info("Login: success")
	c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	h.logger.Info("Refresh request received", zap.String("client_ip", c.ClientIP()))

	var req refreshRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, h.logger, "Refresh", err)
		return
	}

	tokens, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondError(c, h.logger, "Refresh", err)
		return
	}

	h.logger.Info("Refresh: success")
	c.JSON(http.StatusOK, tokens)
}

// Logout accepts an empty body, in which case only the access token is revoked.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := currentClaims(c)
	h.logger.Info("Logout request received",
		zap.Int64("user_id", claims.UserID),
		zap.String("client_ip", c.ClientIP()),
	)

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, h.logger, "Logout", apperr.Validation("Malformed request body: "+err.Error()))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		RespondError(c, h.logger, "Logout", err)
		return
	}

	h.logger.Info("Logout: success", zap.Int64("user_id", claims.UserID))
	c.Status(http.StatusResetContent)
}
