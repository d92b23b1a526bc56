package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventinator/internal/auth/passwd"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.passwd.CreateUser(
		c.Request.Context(),
		req.Username,
		req.Email,
		req.Password,
	)
	if err != nil {
		switch {
		case errors.Is(err, passwd.ErrAlreadyRegistered):
			c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
		case isUnauthenticated(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration"})
		default:
			h.log.Error("account creation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration error"})
		}
		return
	}

	h.finishLogin(c, passwd.Claim(*user), nil)
}
