package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSigner computes a hex-encoded HMAC-SHA256 over the exact payload
// bytes transmitted. Receivers recompute the same MAC over the raw request
// body with the shared endpoint secret, so the signed bytes must never be
// mutated between signing and transmission.
type HMACSigner struct{}

func (HMACSigner) Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the MAC and compares in constant time.
func (s HMACSigner) Verify(payload []byte, signature string, secret string) bool {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hmac.Equal(provided, mac.Sum(nil))
}

var _ PayloadSigner = HMACSigner{}
