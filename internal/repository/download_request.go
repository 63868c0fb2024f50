package repository

import (
	"context"
	"time"

	"docvault/internal/models"

	"gorm.io/gorm"
)

// DownloadRequestRepository defines persistence operations for the download
// request ledger.
type DownloadRequestRepository interface {
	Create(ctx context.Context, req *models.DownloadRequest) error
	ListByRequester(ctx context.Context, requesterID string) ([]models.DownloadRequest, error)
	ListPendingAll(ctx context.Context) ([]models.DownloadRequest, error)
	ListPendingByOwner(ctx context.Context, ownerID string) ([]models.DownloadRequest, error)
	Approve(ctx context.Context, id, approverID string, ownerOnly bool, now, expiresAt time.Time) (bool, error)
	Reject(ctx context.Context, id, approverID string, ownerOnly bool, now time.Time) (bool, error)
	HasActiveGrant(ctx context.Context, documentID, userID string, now time.Time) (bool, error)
}

type downloadRequestRepository struct {
	db *gorm.DB
}

// NewDownloadRequestRepository returns a new DownloadRequestRepository implementation.
func NewDownloadRequestRepository(db *gorm.DB) DownloadRequestRepository {
	return &downloadRequestRepository{db: db}
}

// Create inserts a pending request. The partial unique index on
// (document_id, requester_id) WHERE status='pending' turns a concurrent
// duplicate into a conflict here; an application-level pre-check would race.
func (r *downloadRequestRepository) Create(ctx context.Context, req *models.DownloadRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A pending request for this document already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *downloadRequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]models.DownloadRequest, error) {
	var reqs []models.DownloadRequest
	if err := r.db.WithContext(ctx).
		Preload("Document").
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

// ListPendingAll returns every pending request, oldest first (FIFO review queue).
func (r *downloadRequestRepository) ListPendingAll(ctx context.Context) ([]models.DownloadRequest, error) {
	var reqs []models.DownloadRequest
	if err := r.db.WithContext(ctx).
		Preload("Document").
		Preload("Requester").
		Where("status = ?", models.RequestStatusPending).
		Order("created_at ASC").
		Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

// ListPendingByOwner returns pending requests against the owner's documents,
// oldest first.
func (r *downloadRequestRepository) ListPendingByOwner(ctx context.Context, ownerID string) ([]models.DownloadRequest, error) {
	var reqs []models.DownloadRequest
	if err := r.db.WithContext(ctx).
		Preload("Document").
		Preload("Requester").
		Where("status = ?", models.RequestStatusPending).
		Where("document_id IN (?)",
			r.db.Model(&models.Document{}).Select("id").Where("owner_id = ?", ownerID)).
		Order("created_at ASC").
		Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

// decide is the single-statement conditional transition shared by Approve
// and Reject. The row must still be pending, and for non-admin approvers
// the referenced document must be theirs; zero rows affected covers both
// "already decided" and "not your document".
func (r *downloadRequestRepository) decide(ctx context.Context, id, approverID string, ownerOnly bool, updates map[string]any) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&models.DownloadRequest{}).
		Where("id = ? AND status = ?", id, models.RequestStatusPending)
	if ownerOnly {
		q = q.Where("document_id IN (?)",
			r.db.Model(&models.Document{}).Select("id").Where("owner_id = ?", approverID))
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *downloadRequestRepository) Approve(ctx context.Context, id, approverID string, ownerOnly bool, now, expiresAt time.Time) (bool, error) {
	return r.decide(ctx, id, approverID, ownerOnly, map[string]any{
		"status":      models.RequestStatusApproved,
		"approver_id": approverID,
		"approved_at": now,
		"updated_at":  now,
		"expires_at":  expiresAt,
	})
}

func (r *downloadRequestRepository) Reject(ctx context.Context, id, approverID string, ownerOnly bool, now time.Time) (bool, error) {
	return r.decide(ctx, id, approverID, ownerOnly, map[string]any{
		"status":      models.RequestStatusRejected,
		"approver_id": approverID,
		"rejected_at": now,
		"updated_at":  now,
	})
}

// HasActiveGrant reports whether an approved, unexpired request exists for
// the pair. Expired grants keep their approved status; they simply stop
// matching here.
func (r *downloadRequestRepository) HasActiveGrant(ctx context.Context, documentID, userID string, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DownloadRequest{}).
		Where("document_id = ? AND requester_id = ? AND status = ?",
			documentID, userID, models.RequestStatusApproved).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
