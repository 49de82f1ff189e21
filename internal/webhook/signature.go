package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	SignatureHeader = "x-signature"
	RequestIDHeader = "x-request-id"
)

// Signature is the parsed "ts=<unix>,v1=<hex>" header.
type Signature struct {
	TS string
	V1 string
}

var errMalformedSignature = errors.New("malformed signature header")

func ParseSignature(header string) (Signature, error) {
	var sig Signature

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}

		switch strings.TrimSpace(key) {
		case "ts":
			sig.TS = strings.TrimSpace(value)
		case "v1":
			sig.V1 = strings.TrimSpace(value)
		}
	}

	if sig.TS == "" || sig.V1 == "" {
		return Signature{}, fmt.Errorf("%w: %q", errMalformedSignature, header)
	}

	return sig, nil
}

// Manifest is the string the gateway signs. Alphanumeric ids are signed lowercased.
func Manifest(paymentID, requestID, ts string) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(paymentID), requestID, ts)
}

// Sign returns the hex HMAC-SHA256 of the manifest.
func Sign(secret, paymentID, requestID, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Manifest(paymentID, requestID, ts)))
	return hex.EncodeToString(mac.Sum(nil))
}
