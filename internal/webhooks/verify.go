package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignatureHeader is the header DocuSign Connect uses for the first
// configured HMAC key.
const SignatureHeader = "X-DocuSign-Signature-1"

// VerifyHMAC checks a Connect notification body against the base64
// HMAC-SHA256 signature the provider computed with the shared secret.
func VerifyHMAC(rawBody []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || secret == "" {
		return false
	}

	provided, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), provided)
}
