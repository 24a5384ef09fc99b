package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pawarp19/Esignnew/internal/db/models"
	"github.com/pawarp19/Esignnew/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DocumentService owns the persisted document metadata records.
type DocumentService struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *metrics.MetricsCollector
}

func NewDocumentService(db *gorm.DB, logger *zap.Logger, metrics *metrics.MetricsCollector) *DocumentService {
	return &DocumentService{
		db:      db,
		logger:  logger.With(zap.String("service", "document_service")),
		metrics: metrics,
	}
}

func (ds *DocumentService) Create(ctx context.Context, recipientEmail, senderEmail, documentPath, originalName string) (*models.Document, error) {
	start := time.Now()

	if recipientEmail == "" || senderEmail == "" || documentPath == "" || originalName == "" {
		return nil, fmt.Errorf("%w: recipient email, sender email, document path and original name are required", ErrValidation)
	}

	doc := &models.Document{
		ID:             uuid.New().String(),
		RecipientEmail: recipientEmail,
		SenderEmail:    senderEmail,
		DocumentPath:   documentPath,
		OriginalName:   originalName,
		Signed:         false,
	}

	if err := ds.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}

	ds.metrics.IncrementCounter("documents_created", nil)
	ds.metrics.ObserveLatency("document_create", time.Since(start))

	ds.logger.Info("Document record created",
		zap.String("doc_id", doc.ID),
		zap.String("original_name", originalName))
	return doc, nil
}

func (ds *DocumentService) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := ds.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: document %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &doc, nil
}

func (ds *DocumentService) GetByEnvelopeID(ctx context.Context, envelopeID string) (*models.Document, error) {
	// Records that were never sent carry an empty envelope ID; an empty
	// lookup must not resolve them.
	if envelopeID == "" {
		return nil, fmt.Errorf("%w: empty envelope ID", ErrNotFound)
	}
	var doc models.Document
	if err := ds.db.WithContext(ctx).First(&doc, "envelope_id = ?", envelopeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: envelope %s", ErrNotFound, envelopeID)
		}
		return nil, err
	}
	return &doc, nil
}

// AttachEnvelope records the provider envelope ID on the document so
// the completion callback can find it later.
func (ds *DocumentService) AttachEnvelope(ctx context.Context, id, envelopeID string) error {
	result := ds.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ?", id).
		Update("envelope_id", envelopeID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}

	ds.logger.Info("Envelope attached to document",
		zap.String("doc_id", id),
		zap.String("envelope_id", envelopeID))
	return nil
}

// MarkSigned flips the signed flag and records where the signed
// artifact was stored.
func (ds *DocumentService) MarkSigned(ctx context.Context, id, signedPath string) error {
	result := ds.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"signed":               true,
			"signed_document_path": signedPath,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}

	ds.metrics.IncrementCounter("documents_completed", nil)
	ds.logger.Info("Document marked as signed", zap.String("doc_id", id))
	return nil
}
