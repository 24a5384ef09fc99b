package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pawarp19/Esignnew/internal/config"
	"github.com/pawarp19/Esignnew/internal/db/models"
	"github.com/pawarp19/Esignnew/pkg/metrics"
	"go.uber.org/zap"
)

func writeTestKey(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})
	path := filepath.Join(t.TempDir(), "private.key")
	if err := os.WriteFile(path, privPEM, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path, priv
}

func newTestDocuSign(t *testing.T, cfg config.DocuSignConfig) *DocuSignService {
	t.Helper()
	storage := newTestStorage(t)
	svc, err := NewDocuSignService(cfg, storage, zap.NewNop(), metrics.NewMetricsCollector())
	if err != nil {
		t.Fatalf("NewDocuSignService failed: %v", err)
	}
	return svc
}

func TestNewDocuSignService_MissingKeyFile(t *testing.T) {
	cfg := config.DocuSignConfig{PrivateKeyPath: filepath.Join(t.TempDir(), "absent.key")}
	storage := newTestStorage(t)
	if _, err := NewDocuSignService(cfg, storage, zap.NewNop(), metrics.NewMetricsCollector()); err == nil {
		t.Fatalf("expected constructor to fail without a key file")
	}
}

func TestBuildAssertion_Claims(t *testing.T) {
	keyPath, priv := writeTestKey(t)
	svc := newTestDocuSign(t, config.DocuSignConfig{
		IntegrationKey: "integration-key",
		UserID:         "user-id",
		AuthHost:       "account-d.docusign.com",
		PrivateKeyPath: keyPath,
	})

	assertion, err := svc.buildAssertion()
	if err != nil {
		t.Fatalf("buildAssertion failed: %v", err)
	}

	parsed, err := jwt.Parse(assertion, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return &priv.PublicKey, nil
	})
	if err != nil {
		t.Fatalf("parse assertion: %v", err)
	}

	claims := parsed.Claims.(jwt.MapClaims)
	if claims["iss"] != "integration-key" {
		t.Errorf("iss = %v", claims["iss"])
	}
	if claims["sub"] != "user-id" {
		t.Errorf("sub = %v", claims["sub"])
	}
	if claims["aud"] != "account-d.docusign.com" {
		t.Errorf("aud = %v", claims["aud"])
	}
	if claims["scope"] != "signature impersonation" {
		t.Errorf("scope = %v", claims["scope"])
	}

	iat := int64(claims["iat"].(float64))
	exp := int64(claims["exp"].(float64))
	if exp-iat != int64(assertionLifetime/time.Second) {
		t.Errorf("assertion lifetime = %ds", exp-iat)
	}
}

func TestAccessToken_ExchangeAndCache(t *testing.T) {
	keyPath, _ := writeTestKey(t)

	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/oauth/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != jwtBearerGrantType {
			t.Errorf("grant_type = %s", got)
		}
		if r.PostForm.Get("assertion") == "" {
			t.Errorf("assertion missing from token request")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	svc := newTestDocuSign(t, config.DocuSignConfig{
		IntegrationKey: "ik",
		UserID:         "uid",
		AuthHost:       server.URL,
		PrivateKeyPath: keyPath,
	})

	ctx := context.Background()
	token, err := svc.AccessToken(ctx)
	if err != nil {
		t.Fatalf("AccessToken failed: %v", err)
	}
	if token != "tok-1" {
		t.Errorf("token = %s", token)
	}

	// Second call must come from the cache.
	if _, err := svc.AccessToken(ctx); err != nil {
		t.Fatalf("cached AccessToken failed: %v", err)
	}
	if requests != 1 {
		t.Errorf("expected 1 token request, got %d", requests)
	}
}

func TestAccessToken_RejectionSurfacesProviderPayload(t *testing.T) {
	keyPath, _ := writeTestKey(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"consent_required"}`))
	}))
	defer server.Close()

	svc := newTestDocuSign(t, config.DocuSignConfig{
		IntegrationKey: "ik",
		UserID:         "uid",
		AuthHost:       server.URL,
		PrivateKeyPath: keyPath,
	})

	_, err := svc.AccessToken(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if !strings.Contains(err.Error(), "consent_required") {
		t.Errorf("provider payload not surfaced: %v", err)
	}
}

func TestCreateEnvelope_Definition(t *testing.T) {
	keyPath, _ := writeTestKey(t)
	storage := newTestStorage(t)

	content := []byte("%PDF-1.4 envelope content")
	docPath, err := storage.Store(bytes.NewReader(content), "invoice.pdf")
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	var captured envelopeDefinition
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2.1/accounts/acct-1/envelopes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("authorization = %s", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode definition: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"envelopeId": "env-9", "status": "sent"})
	}))
	defer server.Close()

	svc, err := NewDocuSignService(config.DocuSignConfig{
		APIBaseURL:     server.URL,
		AccountID:      "acct-1",
		AuthHost:       "account-d.docusign.com",
		PrivateKeyPath: keyPath,
	}, storage, zap.NewNop(), metrics.NewMetricsCollector())
	if err != nil {
		t.Fatalf("NewDocuSignService failed: %v", err)
	}

	doc := &models.Document{
		ID:             "doc-1",
		RecipientEmail: "alice@example.com",
		SenderEmail:    "bob@example.com",
		DocumentPath:   docPath,
		OriginalName:   "invoice.pdf",
	}

	envelopeID, err := svc.CreateEnvelope(context.Background(), "tok-1", doc)
	if err != nil {
		t.Fatalf("CreateEnvelope failed: %v", err)
	}
	if envelopeID != "env-9" {
		t.Errorf("envelopeID = %s", envelopeID)
	}

	if captured.EmailSubject != "Please sign this document" {
		t.Errorf("emailSubject = %s", captured.EmailSubject)
	}
	if captured.Status != "sent" {
		t.Errorf("status = %s", captured.Status)
	}
	if len(captured.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(captured.Documents))
	}
	d := captured.Documents[0]
	if d.Name != "invoice.pdf" || d.FileExtension != "pdf" || d.DocumentID != "1" {
		t.Errorf("document fields = %+v", d)
	}
	decoded, err := base64.StdEncoding.DecodeString(d.DocumentBase64)
	if err != nil || string(decoded) != string(content) {
		t.Errorf("documentBase64 does not round-trip the stored bytes")
	}
	if len(captured.Recipients.Signers) != 1 {
		t.Fatalf("expected 1 signer, got %d", len(captured.Recipients.Signers))
	}
	s := captured.Recipients.Signers[0]
	if s.Email != "alice@example.com" || s.Name != "alice" {
		t.Errorf("signer = %+v", s)
	}
	if s.RecipientID != "1" || s.RoutingOrder != "1" {
		t.Errorf("signer routing fields = %+v", s)
	}
}

func TestCreateEnvelope_ProviderRejection(t *testing.T) {
	keyPath, _ := writeTestKey(t)
	storage := newTestStorage(t)

	docPath, err := storage.Store(bytes.NewReader([]byte("x")), "a.pdf")
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errorCode":"INVALID_EMAIL"}`))
	}))
	defer server.Close()

	svc, err := NewDocuSignService(config.DocuSignConfig{
		APIBaseURL:     server.URL,
		AccountID:      "acct-1",
		AuthHost:       "account-d.docusign.com",
		PrivateKeyPath: keyPath,
	}, storage, zap.NewNop(), metrics.NewMetricsCollector())
	if err != nil {
		t.Fatalf("NewDocuSignService failed: %v", err)
	}

	doc := &models.Document{ID: "doc-1", RecipientEmail: "bad", DocumentPath: docPath, OriginalName: "a.pdf"}
	if _, err := svc.CreateEnvelope(context.Background(), "tok", doc); err == nil {
		t.Fatalf("expected provider rejection to surface as an error")
	}
}

func TestFetchSignedDocument(t *testing.T) {
	keyPath, _ := writeTestKey(t)
	storage := newTestStorage(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2.1/accounts/acct-1/envelopes/env-9/documents/1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("signed pdf bytes"))
	}))
	defer server.Close()

	svc, err := NewDocuSignService(config.DocuSignConfig{
		APIBaseURL:     server.URL,
		AccountID:      "acct-1",
		AuthHost:       "account-d.docusign.com",
		PrivateKeyPath: keyPath,
	}, storage, zap.NewNop(), metrics.NewMetricsCollector())
	if err != nil {
		t.Fatalf("NewDocuSignService failed: %v", err)
	}

	got, err := svc.FetchSignedDocument(context.Background(), "tok", "env-9")
	if err != nil {
		t.Fatalf("FetchSignedDocument failed: %v", err)
	}
	if string(got) != "signed pdf bytes" {
		t.Errorf("unexpected artifact %q", got)
	}
}

func TestSignerName(t *testing.T) {
	cases := map[string]string{
		"alice@example.com": "alice",
		"@example.com":      "Signer",
		"no-at-sign":        "Signer",
	}
	for email, want := range cases {
		if got := signerName(email); got != want {
			t.Errorf("signerName(%q) = %q, want %q", email, got, want)
		}
	}
}
