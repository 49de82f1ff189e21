package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/checkout"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/webhook"
)

type payerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type preferenceRequest struct {
	OrderID string        `json:"orden_id"`
	Payer   *payerRequest `json:"payer"`
}

func (h *handler) createPreference(c *gin.Context) {
	var req preferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, domain.Validationf("malformed preference request: %s", err))
		return
	}
	if req.OrderID == "" {
		h.fail(c, domain.Validationf("orden_id is required"))
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.fail(c, domain.Validationf("orden_id %q is not a valid id", req.OrderID))
		return
	}

	intentReq := checkout.CreateIntentRequest{OrderID: orderID}
	if req.Payer != nil {
		intentReq.Payer = &domain.Payer{
			Name:  req.Payer.Name,
			Email: req.Payer.Email,
			Phone: req.Payer.Phone,
		}
	}

	intent, err := h.svc.Checkout.CreateIntent(c.Request.Context(), intentReq)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"init_point":   intent.RedirectURL,
		"preferenceId": intent.PreferenceID,
	})
}

// webhook answers 200 for anything processed or benignly ignored so the gateway
// stops retrying, and 500 only when a retry can succeed.
func (h *handler) webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxWebhookBytes)

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": "Payload too large"})
			return
		}
		h.fail(c, domain.Validationf("read body: %s", err))
		return
	}

	req := webhook.Request{Query: c.Request.URL.Query(), Body: raw}

	if !webhook.IsPaymentTopic(req) {
		h.log.Debug("ignoring non-payment notification", "query", c.Request.URL.RawQuery)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	paymentID, err := webhook.ExtractPaymentID(req)
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()

	if err := h.svc.Webhooks.Authenticate(ctx, paymentID, c.Request.Header); err != nil {
		h.fail(c, err)
		return
	}

	outcome, err := h.svc.Reconciler.Reconcile(ctx, paymentID)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.log.Info("webhook processed",
		"payment_id", paymentID,
		"order_id", outcome.OrderID,
		"status", outcome.Status,
		"transitioned", outcome.Transitioned)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
