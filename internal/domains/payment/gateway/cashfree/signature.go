package cashfree

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// =====================================================
// CASHFREE WEBHOOK SIGNATURE
// =====================================================

// GenerateSignature computes the webhook signature Cashfree sends in
// x-webhook-signature: base64(HMAC-SHA256(timestamp + rawBody, secret)).
func GenerateSignature(timestamp string, rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(rawBody)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature against the expected value.
// Comparison is constant-time; a plain == would leak timing.
func VerifySignature(signature, timestamp string, rawBody []byte, secret string) bool {
	if signature == "" {
		return false
	}
	expected := GenerateSignature(timestamp, rawBody, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
