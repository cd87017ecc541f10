package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/songsmith/songsmith/internal/callerctx"
)

const (
	// HeaderAccount carries the authenticated account id, supplied by the
	// upstream auth layer. HeaderDevice carries one or more client-generated
	// device ids, comma-separated (current plus previously stored ones).
	HeaderAccount = "X-Account-ID"
	HeaderDevice  = "X-Device-ID"
)

// CallerIdentity extracts the caller identity from request headers and stores
// it on the request context. A caller presenting no identifier at all is
// minted a fresh device id, echoed back so the client can persist it.
func (s *Server) CallerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := callerctx.Identity{
			AccountID: strings.TrimSpace(c.GetHeader(HeaderAccount)),
			DeviceIDs: splitDeviceHeader(c.GetHeader(HeaderDevice)),
			LastIP:    c.ClientIP(),
		}

		if identity.IsEmpty() {
			minted := uuid.NewString()
			identity.DeviceIDs = []string{minted}
			c.Header(HeaderDevice, minted)
		}

		ctx := callerctx.WithIdentity(c.Request.Context(), identity)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func splitDeviceHeader(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
