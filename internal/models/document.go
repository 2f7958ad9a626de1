package models

import "time"

// Document is the relational metadata record for an uploaded file.
// The row is created on every successful upload, whether or not vector
// processing succeeds afterwards.
type Document struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	Filename         string    `gorm:"not null" json:"filename"`
	OriginalFilename string    `gorm:"not null" json:"original_filename"`
	FilePath         string    `gorm:"not null" json:"file_path"`
	FileSize         int64     `gorm:"not null" json:"file_size"`
	ContentType      string    `gorm:"not null" json:"content_type"`
	UploadDate       time.Time `gorm:"autoCreateTime" json:"upload_date"`
	Description      string    `json:"description,omitempty"`
}

// DocumentResponse is the API shape of a document, optionally carrying
// the outcome of the vector-processing run that followed the upload.
type DocumentResponse struct {
	Document
	ProcessingResult *ProcessingResult `json:"processing_result,omitempty"`
}

// BulkUploadResponse summarizes a multi-file upload. Per-file failures
// are collected in Errors and never abort the remaining files.
type BulkUploadResponse struct {
	Message       string             `json:"message"`
	UploadedCount int                `json:"uploaded_count"`
	Documents     []DocumentResponse `json:"documents"`
	Errors        []string           `json:"errors"`
}
