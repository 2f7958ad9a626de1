package repo

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mgrd/docstack/internal/models"
)

// ErrDocumentNotFound is returned when a document id has no row.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepo persists document catalog rows.
type DocumentRepo struct {
	db *gorm.DB
}

func NewDocumentRepo(db *gorm.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create inserts the document and fills in its generated ID.
func (r *DocumentRepo) Create(doc *models.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// Get returns one document by id.
func (r *DocumentRepo) Get(id int64) (*models.Document, error) {
	var doc models.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// List returns all documents, newest upload first.
func (r *DocumentRepo) List() ([]models.Document, error) {
	var docs []models.Document
	if err := r.db.Order("upload_date DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Delete removes the document row. Deleting a missing id returns
// ErrDocumentNotFound.
func (r *DocumentRepo) Delete(id int64) error {
	result := r.db.Delete(&models.Document{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
