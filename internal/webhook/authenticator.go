// Package webhook authenticates gateway notifications and extracts the payment id they refer to.
package webhook

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
)

type Authenticator struct {
	secret   string
	security port.SecurityRecorder
	log      *slog.Logger
}

// NewAuthenticator with an empty secret accepts unsigned notifications; callers must
// refuse that mode in production.
func NewAuthenticator(secret string, security port.SecurityRecorder, log *slog.Logger) (*Authenticator, error) {
	if security == nil {
		return nil, errors.New("security is nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Authenticator{
		secret:   secret,
		security: security,
		log:      log,
	}, nil
}

func (a *Authenticator) Signed() bool {
	return a.secret != ""
}

func (a *Authenticator) Authenticate(ctx context.Context, paymentID string, header http.Header) error {
	rawSignature := header.Get(SignatureHeader)
	requestID := header.Get(RequestIDHeader)

	if !a.Signed() {
		a.log.Warn("webhook accepted without signature verification, secret is not configured",
			"method", "Authenticator.Authenticate", "payment_id", paymentID)

		if rawSignature == "" || requestID == "" {
			a.security.Record(ctx, domain.EventInvalidWebhook, domain.SeverityLow, map[string]any{
				"reason":     "missing_headers",
				"payment_id": paymentID,
				"verified":   false,
			})
		}
		return nil
	}

	if rawSignature == "" {
		a.security.Record(ctx, domain.EventInvalidWebhook, domain.SeverityMedium, map[string]any{
			"reason":     "missing_signature",
			"payment_id": paymentID,
		})
		return domain.ErrMissingSignature
	}

	sig, err := ParseSignature(rawSignature)
	if err != nil {
		a.security.Record(ctx, domain.EventInvalidWebhook, domain.SeverityMedium, map[string]any{
			"reason":     "malformed_signature",
			"payment_id": paymentID,
		})
		return fmt.Errorf("ParseSignature: %w: %w", domain.ErrMissingSignature, err)
	}

	expected := Sign(a.secret, paymentID, requestID, sig.TS)
	if !hmac.Equal([]byte(expected), []byte(sig.V1)) {
		a.security.Record(ctx, domain.EventInvalidWebhook, domain.SeverityCritical, map[string]any{
			"reason":     "signature_mismatch",
			"payment_id": paymentID,
			"request_id": requestID,
			"ts":         sig.TS,
			"expected":   expected,
			"received":   sig.V1,
		})
		return domain.ErrInvalidSignature
	}

	return nil
}
