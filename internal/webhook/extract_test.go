package webhook_test

import (
	"net/url"
	"testing"

	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPaymentID(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		body        string
		want        string
		wantErrorIs error
	}{
		{
			name:  "query id",
			query: "id=111&topic=payment",
			want:  "111",
		},
		{
			name:  "query data.id",
			query: "data.id=222&type=payment",
			want:  "222",
		},
		{
			name: "body data.id as number",
			body: `{"type":"payment","data":{"id":333}}`,
			want: "333",
		},
		{
			name: "body data.id as string",
			body: `{"type":"payment","data":{"id":"334"}}`,
			want: "334",
		},
		{
			name: "body id",
			body: `{"id":444}`,
			want: "444",
		},
		{
			name: "large numeric id keeps every digit",
			body: `{"data":{"id":123456789012345678}}`,
			want: "123456789012345678",
		},
		{
			name:  "query wins over body",
			query: "id=1",
			body:  `{"data":{"id":2}}`,
			want:  "1",
		},
		{
			name: "body data.id wins over body id",
			body: `{"id":9,"data":{"id":8}}`,
			want: "8",
		},
		{
			name:        "nothing: missing",
			body:        `{"action":"payment.created"}`,
			wantErrorIs: domain.ErrMissingPaymentID,
		},
		{
			name:        "invalid json: missing",
			body:        `{"data":`,
			wantErrorIs: domain.ErrMissingPaymentID,
		},
		{
			name:        "empty id: missing",
			body:        `{"data":{"id":""}}`,
			wantErrorIs: domain.ErrMissingPaymentID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := webhook.ExtractPaymentID(webhook.Request{Query: q, Body: []byte(tt.body)})
			if tt.wantErrorIs != nil {
				require.ErrorIs(t, err, tt.wantErrorIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsPaymentTopic(t *testing.T) {
	tests := []struct {
		name  string
		query string
		body  string
		want  bool
	}{
		{name: "no topic", body: `{"data":{"id":1}}`, want: true},
		{name: "query topic payment", query: "topic=payment&id=1", want: true},
		{name: "query topic merchant_order", query: "topic=merchant_order&id=1", want: false},
		{name: "body type payment", body: `{"type":"payment"}`, want: true},
		{name: "body type plan", body: `{"type":"subscription_preapproval"}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			assert.Equal(t, tt.want, webhook.IsPaymentTopic(webhook.Request{Query: q, Body: []byte(tt.body)}))
		})
	}
}
