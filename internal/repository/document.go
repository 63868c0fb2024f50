package repository

import (
	"context"
	"errors"

	"docvault/internal/models"

	"gorm.io/gorm"
)

// DocumentRepository defines persistence operations for documents.
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	Create(ctx context.Context, doc *models.Document) error
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]models.Document, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository returns a new DocumentRepository implementation.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("id = ?", id).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Document", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &doc, nil
}

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *documentRepository) Update(ctx context.Context, doc *models.Document) error {
	if err := r.db.WithContext(ctx).Save(doc).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the document row and its ledger entries in one
// transaction. Blob removal is the caller's concern; the row goes first so
// a failed file delete can only leave an orphan file, never an orphan row.
func (r *documentRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).
			Delete(&models.DownloadRequest{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Document", id)
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}

// ListAll fetches every document, newest first. The accessibility filter is
// applied in memory by the caller; at the current scale that beats pushing
// the role/ownership/membership predicate into SQL.
func (r *documentRepository) ListAll(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return docs, nil
}
