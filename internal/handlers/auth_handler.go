package handlers

import (
	"net/http"

	"warehouse-sync-agent/internal/auth"

	"github.com/gin-gonic/gin"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token      string `json:"token"`
	OperatorID string `json:"operator_id"`
	Username   string `json:"username"`
	Message    string `json:"message"`
}

// Login handles POST /api/login
// The password is checked against the configured operator bcrypt hash.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request. Username and password are required.",
		})
		return
	}

	if err := auth.CheckPassword(h.PasswordHash, req.Password); err != nil {
		h.logger().Warn("login rejected", "username", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid username or password",
		})
		return
	}

	// terminals share one operator secret; the username identifies the operator
	operatorID := req.Username
	token, err := h.Tokens.GenerateToken(operatorID, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:      token,
		OperatorID: operatorID,
		Username:   req.Username,
		Message:    "Login successful",
	})
}
