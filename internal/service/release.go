package service

import (
	"context"
	"strings"
	"time"

	"docvault/internal/authz"
	"docvault/internal/models"
	"docvault/internal/repository"
)

// ReleaseService implements the download-release workflow: creating,
// reviewing and deciding download requests. Expiry of approved grants is
// not swept in the background; it is enforced at download time.
type ReleaseService struct {
	requests  repository.DownloadRequestRepository
	documents repository.DocumentRepository
	ttl       time.Duration
}

// NewReleaseService returns a ReleaseService granting approvals for the
// given TTL (already clamped by config).
func NewReleaseService(requests repository.DownloadRequestRepository, documents repository.DocumentRepository, ttl time.Duration) *ReleaseService {
	return &ReleaseService{requests: requests, documents: documents, ttl: ttl}
}

// CreateRequestInput carries the requester-supplied identity disclosure.
// The applicant fields are deliberately free-form and not derived from the
// user record.
type CreateRequestInput struct {
	ApplicantName    string
	ApplicantCompany string
	ApplicantContact string
	Message          string
}

// Create files a pending download request for the document. Admins and
// owners never need one, and preauthorized documents don't take them.
func (s *ReleaseService) Create(ctx context.Context, documentID string, p authz.Principal, in CreateRequestInput) (*models.DownloadRequest, error) {
	name := strings.TrimSpace(in.ApplicantName)
	company := strings.TrimSpace(in.ApplicantCompany)
	contact := strings.TrimSpace(in.ApplicantContact)
	if name == "" || company == "" || contact == "" {
		return nil, models.NewValidationError("Applicant name, company, and contact are required")
	}

	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !authz.Accessible(doc, p) {
		return nil, models.NewForbiddenError("You do not have access to this document")
	}
	if p.IsAdmin() || doc.OwnerID == p.ID {
		return nil, models.NewValidationError("No need to request a download for this document")
	}
	if doc.DownloadPreauthorized {
		return nil, models.NewValidationError("Downloads for this document are preauthorized")
	}

	req := &models.DownloadRequest{
		DocumentID:       documentID,
		RequesterID:      p.ID,
		ApplicantName:    name,
		ApplicantCompany: company,
		ApplicantContact: contact,
		Message:          strings.TrimSpace(in.Message),
		Status:           models.RequestStatusPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListMine returns the principal's own requests, newest first.
func (s *ReleaseService) ListMine(ctx context.Context, p authz.Principal) ([]models.DownloadRequest, error) {
	return s.requests.ListByRequester(ctx, p.ID)
}

// ListPending returns the review queue, oldest first: all pending requests
// for admins, requests against owned documents for everyone else.
func (s *ReleaseService) ListPending(ctx context.Context, p authz.Principal) ([]models.DownloadRequest, error) {
	if p.IsAdmin() {
		return s.requests.ListPendingAll(ctx)
	}
	return s.requests.ListPendingByOwner(ctx, p.ID)
}

// Approve grants a pending request until now+TTL. Only admins and the
// document's owner may decide; a request that is already decided or not
// theirs reports not-found.
func (s *ReleaseService) Approve(ctx context.Context, requestID string, p authz.Principal, now time.Time) error {
	changed, err := s.requests.Approve(ctx, requestID, p.ID, !p.IsAdmin(), now, now.Add(s.ttl))
	if err != nil {
		return err
	}
	if !changed {
		return models.NewNotFoundError("Download request", requestID)
	}
	return nil
}

// Reject denies a pending request; no expiry is set.
func (s *ReleaseService) Reject(ctx context.Context, requestID string, p authz.Principal, now time.Time) error {
	changed, err := s.requests.Reject(ctx, requestID, p.ID, !p.IsAdmin(), now)
	if err != nil {
		return err
	}
	if !changed {
		return models.NewNotFoundError("Download request", requestID)
	}
	return nil
}
