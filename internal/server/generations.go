package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/songsmith/songsmith/internal/callerctx"
)

type completeGenerationRequest struct {
	// GenerationCount is the authoritative number of generations the caller
	// has completed to date, per the synthesis provider. Not a delta: the
	// provider may redeliver this callback.
	GenerationCount int    `json:"generation_count"`
	SongTitle       string `json:"song_title"`
}

// CompleteGeneration is the synthesis provider's completion callback. It
// folds the authoritative generation count into the caller's usage records
// and stores the finished song when a title is supplied.
func (s *Server) CompleteGeneration(c *gin.Context) {
	identity, ok := callerctx.FromContext(c.Request.Context())
	if !ok || identity.IsEmpty() {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req completeGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.usageSvc.RecordCompleted(c.Request.Context(), identity, req.GenerationCount); err != nil {
		AbortWithError(c, err)
		return
	}

	if req.SongTitle != "" {
		if _, err := s.songSvc.Record(c.Request.Context(), identity, req.SongTitle); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

func bindJSON(payload []byte, out any) error {
	return json.Unmarshal(payload, out)
}
