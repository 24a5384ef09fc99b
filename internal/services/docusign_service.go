package services

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"github.com/pawarp19/Esignnew/internal/config"
	"github.com/pawarp19/Esignnew/internal/db/models"
	"github.com/pawarp19/Esignnew/pkg/metrics"
	"go.uber.org/zap"
)

const (
	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionScope     = "signature impersonation"
	assertionLifetime  = time.Hour
	// Cached tokens are dropped this long before the provider expiry so
	// an in-flight call never carries a token about to lapse.
	tokenExpiryMargin = 60 * time.Second
	tokenCacheKey     = "access_token"
)

type envelopeDocument struct {
	DocumentBase64 string `json:"documentBase64"`
	Name           string `json:"name"`
	FileExtension  string `json:"fileExtension"`
	DocumentID     string `json:"documentId"`
}

type envelopeSigner struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder"`
}

type envelopeRecipients struct {
	Signers []envelopeSigner `json:"signers"`
}

type envelopeDefinition struct {
	EmailSubject string             `json:"emailSubject"`
	Documents    []envelopeDocument `json:"documents"`
	Recipients   envelopeRecipients `json:"recipients"`
	Status       string             `json:"status"`
}

type envelopeSummary struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// DocuSignService authenticates to DocuSign with the JWT-bearer grant
// and submits/retrieves envelopes.
type DocuSignService struct {
	cfg        config.DocuSignConfig
	storage    *StorageService
	signingKey *rsa.PrivateKey
	httpClient *http.Client
	tokenCache *cache.Cache
	logger     *zap.Logger
	metrics    *metrics.MetricsCollector
}

func NewDocuSignService(cfg config.DocuSignConfig, storage *StorageService, logger *zap.Logger, metrics *metrics.MetricsCollector) (*DocuSignService, error) {
	pemBytes, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read DocuSign private key %s: %w", cfg.PrivateKeyPath, err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DocuSign private key: %w", err)
	}

	return &DocuSignService{
		cfg:        cfg,
		storage:    storage,
		signingKey: key,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		tokenCache: cache.New(cache.NoExpiration, time.Minute),
		logger:     logger.With(zap.String("service", "docusign_service")),
		metrics:    metrics,
	}, nil
}

func (ds *DocuSignService) buildAssertion() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   ds.cfg.IntegrationKey,
		"sub":   ds.cfg.UserID,
		"aud":   authAudience(ds.cfg.AuthHost),
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
		"scope": assertionScope,
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ds.signingKey)
}

// authAudience strips any scheme from the configured auth host; the aud
// claim must be the bare host.
func authAudience(host string) string {
	if i := strings.Index(host, "://"); i != -1 {
		return host[i+3:]
	}
	return host
}

func (ds *DocuSignService) tokenURL() string {
	host := ds.cfg.AuthHost
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host + "/oauth/token"
}

// AccessToken exchanges a fresh assertion for a bearer token, caching
// it until shortly before expiry. The exchange is idempotent, so a
// transport failure gets a single retry.
func (ds *DocuSignService) AccessToken(ctx context.Context) (string, error) {
	if token, found := ds.tokenCache.Get(tokenCacheKey); found {
		return token.(string), nil
	}

	assertion, err := ds.buildAssertion()
	if err != nil {
		return "", fmt.Errorf("failed to build assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrantType},
		"assertion":  {assertion},
	}

	resp, err := ds.postForm(ctx, ds.tokenURL(), form)
	if err != nil {
		ds.logger.Warn("Token exchange transport error, retrying once", zap.Error(err))
		resp, err = ds.postForm(ctx, ds.tokenURL(), form)
		if err != nil {
			return "", fmt.Errorf("token exchange failed: %w", err)
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		ds.metrics.IncrementCounter("docusign_auth_failures", nil)
		return "", fmt.Errorf("%w: token endpoint returned %d: %s", ErrAuth, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	ttl := time.Duration(token.ExpiresIn)*time.Second - tokenExpiryMargin
	if ttl > 0 {
		ds.tokenCache.Set(tokenCacheKey, token.AccessToken, ttl)
	}

	ds.logger.Info("Access token obtained", zap.Int("expires_in", token.ExpiresIn))
	return token.AccessToken, nil
}

func (ds *DocuSignService) postForm(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ds.httpClient.Do(req)
}

// CreateEnvelope submits a single-document, single-signer envelope with
// status "sent" so the provider dispatches the signing email at once.
// Returns the provider envelope ID.
func (ds *DocuSignService) CreateEnvelope(ctx context.Context, accessToken string, doc *models.Document) (string, error) {
	start := time.Now()

	content, err := ds.storage.Read(doc.DocumentPath)
	if err != nil {
		return "", fmt.Errorf("failed to read document %s: %w", doc.DocumentPath, err)
	}

	definition := envelopeDefinition{
		EmailSubject: "Please sign this document",
		Documents: []envelopeDocument{
			{
				DocumentBase64: base64.StdEncoding.EncodeToString(content),
				Name:           doc.OriginalName,
				FileExtension:  "pdf",
				DocumentID:     "1",
			},
		},
		Recipients: envelopeRecipients{
			Signers: []envelopeSigner{
				{
					Email:        doc.RecipientEmail,
					Name:         signerName(doc.RecipientEmail),
					RecipientID:  "1",
					RoutingOrder: "1",
				},
			},
		},
		Status: "sent",
	}

	payload, err := json.Marshal(definition)
	if err != nil {
		return "", fmt.Errorf("failed to encode envelope definition: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2.1/accounts/%s/envelopes", ds.cfg.APIBaseURL, ds.cfg.AccountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ds.httpClient.Do(req)
	if err != nil {
		ds.metrics.IncrementCounter("envelopes_failed", nil)
		return "", fmt.Errorf("envelope submission failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read envelope response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		ds.metrics.IncrementCounter("envelopes_failed", nil)
		return "", fmt.Errorf("envelope endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var summary envelopeSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return "", fmt.Errorf("failed to decode envelope response: %w", err)
	}

	ds.metrics.IncrementCounter("envelopes_created", nil)
	ds.metrics.ObserveLatency("envelope_create", time.Since(start))

	ds.logger.Info("Envelope created",
		zap.String("envelope_id", summary.EnvelopeID),
		zap.String("doc_id", doc.ID),
		zap.String("status", summary.Status))
	return summary.EnvelopeID, nil
}

// FetchSignedDocument downloads the completed artifact for document "1"
// of the given envelope.
func (ds *DocuSignService) FetchSignedDocument(ctx context.Context, accessToken, envelopeID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/v2.1/accounts/%s/envelopes/%s/documents/1",
		ds.cfg.APIBaseURL, ds.cfg.AccountID, envelopeID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := ds.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signed document fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read signed document: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

// signerName derives a display name from the local part of the
// recipient email.
func signerName(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "Signer"
	}
	return local
}
