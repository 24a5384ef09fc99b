package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyHMAC_ValidSignature(t *testing.T) {
	secret := "connect-secret"
	body := []byte(`{"envelopeId":"env-1","status":"completed"}`)

	if !VerifyHMAC(body, signBody(secret, body), secret) {
		t.Fatalf("expected valid signature")
	}
}

func TestVerifyHMAC_InvalidSignature(t *testing.T) {
	secret := "connect-secret"
	body := []byte(`{"envelopeId":"env-1","status":"completed"}`)

	if VerifyHMAC(body, signBody("other-secret", body), secret) {
		t.Fatalf("expected invalid signature")
	}
}

func TestVerifyHMAC_MissingOrMalformedSignature(t *testing.T) {
	body := []byte(`{}`)

	if VerifyHMAC(body, "", "secret") {
		t.Fatalf("expected missing signature to fail")
	}
	if VerifyHMAC(body, "not-base64!!!", "secret") {
		t.Fatalf("expected malformed signature to fail")
	}
	if VerifyHMAC(body, signBody("secret", body), "") {
		t.Fatalf("expected empty secret to fail")
	}
}
