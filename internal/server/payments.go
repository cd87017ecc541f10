package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/songsmith/songsmith/internal/credit/domain"
)

type paymentWebhookRequest struct {
	TransactionID  string `json:"transaction_id"`
	OwnerRef       string `json:"owner_ref"`
	CreditsGranted int    `json:"credits_granted"`
}

// HandlePaymentWebhook records a confirmed charge from the payment processor
// as a credit transaction. The processor retries deliveries; the grant is
// deduplicated on (provider, transaction_id).
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req paymentWebhookRequest
	if err := bindJSON(payload, &req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	tx, err := s.creditSvc.Grant(c.Request.Context(), creditdomain.PaymentConfirmed{
		Provider:       c.Param("provider"),
		ProviderTxID:   req.TransactionID,
		OwnerRef:       req.OwnerRef,
		CreditsGranted: req.CreditsGranted,
		Payload:        payload,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "received",
		"transaction_id":    tx.ProviderTxID,
		"available_credits": tx.AvailableCredits,
	})
}
