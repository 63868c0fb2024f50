package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus defines lifecycle states for download requests.
type RequestStatus string

const (
	// RequestStatusPending indicates the request is awaiting review.
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusApproved indicates the request was granted.
	RequestStatusApproved RequestStatus = "approved"
	// RequestStatusRejected indicates the request was denied.
	RequestStatusRejected RequestStatus = "rejected"
)

// DownloadRequest is a user's application to download a restricted document.
// At most one pending row may exist per (document, requester); the partial
// unique index created during migration enforces that under concurrency.
// Expiry of an approved grant is enforced lazily at download time, so the
// status stays "approved" after ExpiresAt passes.
type DownloadRequest struct {
	ID               string        `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID       string        `gorm:"type:uuid;not null;index" json:"documentId"`
	Document         *Document     `gorm:"foreignKey:DocumentID" json:"-"`
	RequesterID      string        `gorm:"type:uuid;not null;index" json:"requesterId"`
	Requester        *User         `gorm:"foreignKey:RequesterID" json:"-"`
	ApplicantName    string        `gorm:"size:255;not null" json:"applicantName"`
	ApplicantCompany string        `gorm:"size:255;not null" json:"applicantCompany"`
	ApplicantContact string        `gorm:"size:255;not null" json:"applicantContact"`
	Message          string        `gorm:"type:text" json:"message"`
	Status           RequestStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ApproverID       *string       `gorm:"type:uuid" json:"approverId"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	ApprovedAt       *time.Time    `json:"approvedAt"`
	RejectedAt       *time.Time    `json:"rejectedAt"`
	ExpiresAt        *time.Time    `json:"expiresAt"`
}

// BeforeCreate assigns a UUID primary key when one was not provided.
func (r *DownloadRequest) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
