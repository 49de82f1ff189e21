package webhook_test

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/repository/memory"
	"github.com/nikolayk812/artesano/internal/security"
	"github.com/nikolayk812/artesano/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret    = "whsec_test"
	paymentID = "987654321"
	requestID = "bb56a2f1-6aae-46ac-982e-9dcd3581d08e"
	ts        = "1704908010"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func headers(signature, reqID string) http.Header {
	h := http.Header{}
	if signature != "" {
		h.Set(webhook.SignatureHeader, signature)
	}
	if reqID != "" {
		h.Set(webhook.RequestIDHeader, reqID)
	}
	return h
}

func TestAuthenticate(t *testing.T) {
	valid := "ts=" + ts + ",v1=" + webhook.Sign(secret, paymentID, requestID, ts)

	tests := []struct {
		name        string
		secret      string
		paymentID   string
		header      http.Header
		wantErrorIs error
		wantSev     domain.Severity
		wantReason  string
	}{
		{
			name:      "valid signature: ok",
			secret:    secret,
			paymentID: paymentID,
			header:    headers(valid, requestID),
		},
		{
			name:        "missing signature: rejected",
			secret:      secret,
			paymentID:   paymentID,
			header:      headers("", requestID),
			wantErrorIs: domain.ErrMissingSignature,
			wantSev:     domain.SeverityMedium,
			wantReason:  "missing_signature",
		},
		{
			name:        "malformed signature: rejected",
			secret:      secret,
			paymentID:   paymentID,
			header:      headers("v1=abc", requestID),
			wantErrorIs: domain.ErrMissingSignature,
			wantSev:     domain.SeverityMedium,
			wantReason:  "malformed_signature",
		},
		{
			name:        "signature for another payment: rejected",
			secret:      secret,
			paymentID:   "111",
			header:      headers(valid, requestID),
			wantErrorIs: domain.ErrInvalidSignature,
			wantSev:     domain.SeverityCritical,
			wantReason:  "signature_mismatch",
		},
		{
			name:        "request id swapped: rejected",
			secret:      secret,
			paymentID:   paymentID,
			header:      headers(valid, "other-request"),
			wantErrorIs: domain.ErrInvalidSignature,
			wantSev:     domain.SeverityCritical,
			wantReason:  "signature_mismatch",
		},
		{
			name:      "unsigned mode, headers present: accepted silently",
			paymentID: paymentID,
			header:    headers(valid, requestID),
		},
		{
			name:       "unsigned mode, headers missing: accepted with low event",
			paymentID:  paymentID,
			header:     headers("", ""),
			wantSev:    domain.SeverityLow,
			wantReason: "missing_headers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()

			auth, err := webhook.NewAuthenticator(tt.secret, security.NewLogger(store, discardLog), discardLog)
			require.NoError(t, err)

			err = auth.Authenticate(t.Context(), tt.paymentID, tt.header)
			if tt.wantErrorIs != nil {
				require.ErrorIs(t, err, tt.wantErrorIs)
				require.ErrorIs(t, err, domain.ErrAuth)
			} else {
				require.NoError(t, err)
			}

			events, err := store.SearchSecurityEvents(t.Context(), domain.SecurityEventFilter{})
			require.NoError(t, err)

			if tt.wantReason == "" {
				assert.Empty(t, events)
				return
			}

			require.Len(t, events, 1)
			assert.Equal(t, domain.EventInvalidWebhook, events[0].Kind)
			assert.Equal(t, tt.wantSev, events[0].Severity)
			assert.Equal(t, tt.wantReason, events[0].Details["reason"])
		})
	}
}

func TestAuthenticateMismatchRecordsBothSignatures(t *testing.T) {
	store := memory.NewStore()

	auth, err := webhook.NewAuthenticator(secret, security.NewLogger(store, discardLog), discardLog)
	require.NoError(t, err)

	err = auth.Authenticate(t.Context(), paymentID, headers("ts="+ts+",v1=deadbeef", requestID))
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	events, err := store.SearchSecurityEvents(t.Context(), domain.SecurityEventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, "deadbeef", events[0].Details["received"])
	assert.Equal(t, webhook.Sign(secret, paymentID, requestID, ts), events[0].Details["expected"])
}

func TestAuthenticateOneHexCharFlipped(t *testing.T) {
	valid := webhook.Sign(secret, paymentID, requestID, ts)

	flip := func(c byte) byte {
		if c == '0' {
			return '1'
		}
		return '0'
	}

	for _, pos := range []int{0, len(valid) / 2, len(valid) - 1} {
		tampered := []byte(valid)
		tampered[pos] = flip(tampered[pos])

		store := memory.NewStore()

		auth, err := webhook.NewAuthenticator(secret, security.NewLogger(store, discardLog), discardLog)
		require.NoError(t, err)

		err = auth.Authenticate(t.Context(), paymentID, headers("ts="+ts+",v1="+string(tampered), requestID))
		require.ErrorIs(t, err, domain.ErrInvalidSignature)
		require.ErrorIs(t, err, domain.ErrAuth)

		events, err := store.SearchSecurityEvents(t.Context(), domain.SecurityEventFilter{})
		require.NoError(t, err)
		require.Len(t, events, 1, "position %d", pos)
		assert.Equal(t, domain.SeverityCritical, events[0].Severity)
		assert.Equal(t, "signature_mismatch", events[0].Details["reason"])
	}
}

func TestNewAuthenticator(t *testing.T) {
	_, err := webhook.NewAuthenticator(secret, nil, discardLog)
	require.EqualError(t, err, "security is nil")
}
