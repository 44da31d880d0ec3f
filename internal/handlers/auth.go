package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidmeta/backend/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}
	if !h.auth.CheckCredentials(req.Username, req.Password) {
		RespondError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		return
	}
	token, err := h.auth.IssueToken(req.Username)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "token_issue_failed", "could not issue token")
		return
	}
	RespondOK(c, token)
}
