package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventinator/internal/auth/passwd"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, providerSession, err := h.passwd.AuthenticateUser(
		c.Request.Context(),
		req.Email,
		req.Password,
	)
	if err != nil {
		if isUnauthenticated(err) {
			h.challenge(c)
			return
		}
		h.log.Error("password authentication failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication error"})
		return
	}

	h.finishLogin(c, passwd.Claim(*user), providerSession)
}
