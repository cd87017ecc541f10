package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/songsmith/songsmith/internal/callerctx"
	songdomain "github.com/songsmith/songsmith/internal/song/domain"
)

// ListSongs returns the caller's library: songs owned by the account plus any
// still attached to the presented device ids.
func (s *Server) ListSongs(c *gin.Context) {
	identity, ok := callerctx.FromContext(c.Request.Context())
	if !ok || identity.IsEmpty() {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	songs, err := s.songSvc.ListForIdentity(c.Request.Context(), identity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if songs == nil {
		songs = []songdomain.Song{}
	}
	c.JSON(http.StatusOK, gin.H{"songs": songs})
}
