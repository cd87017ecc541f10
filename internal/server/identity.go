package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/songsmith/songsmith/internal/callerctx"
)

// MigrateIdentity folds the caller's anonymous history into the signed-in
// account. The sign-in flow may deliver this more than once; the merge is
// idempotent, so re-delivery returns the same converged state.
func (s *Server) MigrateIdentity(c *gin.Context) {
	identity, ok := callerctx.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.mergeSvc.Migrate(c.Request.Context(), identity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
