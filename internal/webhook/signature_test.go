package webhook_test

import (
	"testing"

	"github.com/nikolayk812/artesano/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		want      webhook.Signature
		wantError string
	}{
		{
			name:   "canonical: ok",
			header: "ts=1704908010,v1=618c85345248dd820d5fd456117c2ab2ef8eda45a0282ff693eac24131a5e839",
			want:   webhook.Signature{TS: "1704908010", V1: "618c85345248dd820d5fd456117c2ab2ef8eda45a0282ff693eac24131a5e839"},
		},
		{
			name:   "spaces and reordered: ok",
			header: " v1=abc , ts=1 ",
			want:   webhook.Signature{TS: "1", V1: "abc"},
		},
		{
			name:   "unknown parts ignored: ok",
			header: "ts=1,v0=old,v1=abc",
			want:   webhook.Signature{TS: "1", V1: "abc"},
		},
		{
			name:      "no v1: fail",
			header:    "ts=1",
			wantError: `malformed signature header: "ts=1"`,
		},
		{
			name:      "garbage: fail",
			header:    "garbage",
			wantError: `malformed signature header: "garbage"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := webhook.ParseSignature(tt.header)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestManifest(t *testing.T) {
	assert.Equal(t, "id:123;request-id:req-1;ts:1700000000;", webhook.Manifest("123", "req-1", "1700000000"))
	assert.Equal(t, "id:abc;request-id:r;ts:1;", webhook.Manifest("ABC", "r", "1"))
}

func TestSign(t *testing.T) {
	sig := webhook.Sign("secret", "123", "req-1", "1700000000")
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, webhook.Sign("secret", "123", "req-1", "1700000000"))
	assert.NotEqual(t, sig, webhook.Sign("other", "123", "req-1", "1700000000"))
	assert.NotEqual(t, sig, webhook.Sign("secret", "124", "req-1", "1700000000"))
}
