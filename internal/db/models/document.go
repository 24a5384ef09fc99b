package models

import (
	"gorm.io/gorm"
)

// Document is the metadata record for an uploaded file routed through
// the e-signature provider. The binary payload itself lives on disk at
// DocumentPath; SignedDocumentPath is set once the signed artifact has
// been fetched back from the provider.
type Document struct {
	gorm.Model
	ID                 string `gorm:"primaryKey"`
	RecipientEmail     string `gorm:"not null"`
	SenderEmail        string `gorm:"not null"`
	DocumentPath       string `gorm:"not null"`
	OriginalName       string `gorm:"not null"`
	Signed             bool   `gorm:"not null;default:false"`
	SignedDocumentPath string
	// EnvelopeID links the record to the provider envelope created at
	// send time, so the completion callback can resolve it.
	EnvelopeID string `gorm:"index"`
}
