package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/pawarp19/Esignnew/internal/services"
	"github.com/pawarp19/Esignnew/internal/webhooks"
	"github.com/pawarp19/Esignnew/pkg/metrics"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	documentService *services.DocumentService
	storageService  *services.StorageService
	docusignService *services.DocuSignService
	notifier        services.Notifier
	connectSecret   string
	logger          *zap.Logger
	metrics         *metrics.MetricsCollector
}

func NewDocumentHandler(
	documentService *services.DocumentService,
	storageService *services.StorageService,
	docusignService *services.DocuSignService,
	notifier services.Notifier,
	connectSecret string,
	logger *zap.Logger,
	metrics *metrics.MetricsCollector,
) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		storageService:  storageService,
		docusignService: docusignService,
		notifier:        notifier,
		connectSecret:   connectSecret,
		logger:          logger.With(zap.String("handler", "document")),
		metrics:         metrics,
	}
}

type sendRequest struct {
	Documents []sendRequestDocument `json:"documents"`
}

type sendRequestDocument struct {
	ID string `json:"_id"`
}

type sendResult struct {
	ID         string `json:"id"`
	EnvelopeID string `json:"envelopeId,omitempty"`
	Error      string `json:"error,omitempty"`
}

type callbackPayload struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}

// UploadDocument stores the uploaded file under its original name and
// persists the metadata record.
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	recipientEmail := c.PostForm("email")
	senderEmail := c.PostForm("senderEmail")

	fileHeader, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "A document file is required"})
		return
	}

	if recipientEmail == "" || senderEmail == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Recipient and sender emails are required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error uploading document"})
		return
	}
	defer f.Close()

	storedPath, err := h.storageService.Store(f, fileHeader.Filename)
	if err != nil {
		h.logger.Error("store uploaded file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error uploading document"})
		return
	}

	doc, err := h.documentService.Create(c.Request.Context(), recipientEmail, senderEmail, storedPath, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		h.logger.Error("create document record failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error uploading document"})
		return
	}

	h.metrics.IncrementCounter("documents_uploaded", nil)
	h.metrics.ObserveSize("document_size", float64(fileHeader.Size))

	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// SendDocuments submits one envelope per requested document. A failing
// document is logged and recorded in the per-document results without
// aborting the rest of the batch; only a failed token exchange before
// the loop fails the whole request.
func (h *DocumentHandler) SendDocuments(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	accessToken, err := h.docusignService.AccessToken(c.Request.Context())
	if err != nil {
		h.logger.Error("token exchange failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error sending documents for signing"})
		return
	}

	results := make([]sendResult, 0, len(req.Documents))
	for _, item := range req.Documents {
		doc, err := h.documentService.GetByID(c.Request.Context(), item.ID)
		if err != nil {
			h.logger.Warn("document not found, skipping", zap.String("doc_id", item.ID), zap.Error(err))
			results = append(results, sendResult{ID: item.ID, Error: "document not found"})
			continue
		}

		envelopeID, err := h.docusignService.CreateEnvelope(c.Request.Context(), accessToken, doc)
		if err != nil {
			h.logger.Error("envelope creation failed",
				zap.String("doc_id", doc.ID),
				zap.Error(err))
			results = append(results, sendResult{ID: doc.ID, Error: err.Error()})
			continue
		}

		if err := h.documentService.AttachEnvelope(c.Request.Context(), doc.ID, envelopeID); err != nil {
			h.logger.Error("attach envelope failed",
				zap.String("doc_id", doc.ID),
				zap.String("envelope_id", envelopeID),
				zap.Error(err))
		}

		results = append(results, sendResult{ID: doc.ID, EnvelopeID: envelopeID})
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Emails sent successfully!",
		"results": results,
	})
}

// DocuSignCallback handles Connect status notifications. Only a
// "completed" status has side effects: the signed artifact is fetched
// and stored, the record is marked signed, and both parties are
// notified. Mail failures are logged and do not change the response.
func (h *DocumentHandler) DocuSignCallback(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		h.logger.Error("read callback body failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Error handling notification")
		return
	}

	if h.connectSecret != "" {
		if !webhooks.VerifyHMAC(rawBody, c.GetHeader(webhooks.SignatureHeader), h.connectSecret) {
			h.logger.Warn("callback signature verification failed",
				zap.String("client_ip", c.ClientIP()))
			c.String(http.StatusUnauthorized, "Invalid signature")
			return
		}
	}

	var payload callbackPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		h.logger.Warn("callback payload decode failed", zap.Error(err))
		c.String(http.StatusOK, "Notification received")
		return
	}

	h.metrics.IncrementCounter("callbacks_received", map[string]string{"status": payload.Status})

	if payload.Status != "completed" {
		c.String(http.StatusOK, "Notification received")
		return
	}

	doc, err := h.documentService.GetByEnvelopeID(c.Request.Context(), payload.EnvelopeID)
	if err != nil {
		h.logger.Warn("no document for envelope",
			zap.String("envelope_id", payload.EnvelopeID),
			zap.Error(err))
		c.String(http.StatusOK, "Notification received")
		return
	}

	accessToken, err := h.docusignService.AccessToken(c.Request.Context())
	if err != nil {
		h.logger.Error("token exchange failed in callback", zap.Error(err))
		c.String(http.StatusInternalServerError, "Error handling notification")
		return
	}

	signedContent, err := h.docusignService.FetchSignedDocument(c.Request.Context(), accessToken, payload.EnvelopeID)
	if err != nil {
		h.logger.Error("fetch signed document failed",
			zap.String("envelope_id", payload.EnvelopeID),
			zap.Error(err))
		c.String(http.StatusInternalServerError, "Error handling notification")
		return
	}

	signedPath, err := h.storageService.StoreSigned(doc.OriginalName, signedContent)
	if err != nil {
		h.logger.Error("store signed document failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Error handling notification")
		return
	}

	if err := h.documentService.MarkSigned(c.Request.Context(), doc.ID, signedPath); err != nil {
		h.logger.Error("mark signed failed", zap.String("doc_id", doc.ID), zap.Error(err))
	}

	downloadURL := "/signed/" + filepath.Base(signedPath)
	body := "The document has been signed. You can download it from: " + downloadURL
	for _, to := range []string{doc.SenderEmail, doc.RecipientEmail} {
		if err := h.notifier.Notify(to, "Document Signed", body); err != nil {
			h.logger.Error("notification failed", zap.String("to", to), zap.Error(err))
		}
	}

	c.String(http.StatusOK, "Notification received")
}
