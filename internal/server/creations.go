package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/songsmith/songsmith/internal/callerctx"
)

// GetCreationStatus reports whether the caller's next creation would be
// allowed, without consuming anything. Safe to poll for UI display.
func (s *Server) GetCreationStatus(c *gin.Context) {
	identity, ok := callerctx.FromContext(c.Request.Context())
	if !ok || identity.IsEmpty() {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	status, err := s.gateSvc.CheckStatus(c.Request.Context(), identity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// AuthorizeCreation runs the gate and, for a paid creation, consumes the
// credit. A denial is a payment-required outcome, distinct from transient
// failures which surface as 503.
func (s *Server) AuthorizeCreation(c *gin.Context) {
	identity, ok := callerctx.FromContext(c.Request.Context())
	if !ok || identity.IsEmpty() {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	authorization, err := s.gateSvc.AuthorizeAndConsume(c.Request.Context(), identity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !authorization.Allowed {
		c.JSON(http.StatusPaymentRequired, authorization)
		return
	}
	c.JSON(http.StatusOK, authorization)
}
