package service

import (
	"context"
	"time"

	"docvault/internal/authz"
	"docvault/internal/middleware"
	"docvault/internal/models"
	"docvault/internal/repository"
	"docvault/internal/storage"

	"github.com/google/uuid"
)

// DocumentService orchestrates document metadata and blob bytes. Uploads
// and downloads are fully buffered; large files are out of scope.
type DocumentService struct {
	documents repository.DocumentRepository
	grants    authz.GrantProbe
	blobs     *storage.BlobStore
}

// NewDocumentService returns a new DocumentService.
func NewDocumentService(documents repository.DocumentRepository, grants authz.GrantProbe, blobs *storage.BlobStore) *DocumentService {
	return &DocumentService{documents: documents, grants: grants, blobs: blobs}
}

// UploadInput carries a parsed multipart upload.
type UploadInput struct {
	Filename     string
	ContentType  string
	Content      []byte
	Notes        string
	Permission   models.Permission
	AllowedUsers models.UUIDList
	IsGenerated  bool
}

// Upload writes the blob and then inserts the row. A failed insert triggers
// a best-effort delete of the just-written blob so database failures don't
// accumulate orphan files. Zero-byte files are legal; the missing-file-part
// check belongs to the multipart handler.
func (s *DocumentService) Upload(ctx context.Context, ownerID string, in UploadInput) (*models.Document, error) {
	if !in.Permission.Valid() {
		return nil, models.NewValidationError("invalid permission")
	}
	if in.Permission != models.PermissionSpecific {
		in.AllowedUsers = models.UUIDList{}
	}
	if in.AllowedUsers == nil {
		in.AllowedUsers = models.UUIDList{}
	}

	filename := in.Filename
	if filename == "" {
		filename = "upload.bin"
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc := &models.Document{
		ID:           uuid.NewString(),
		Name:         filename,
		MimeType:     contentType,
		Size:         int64(len(in.Content)),
		Notes:        in.Notes,
		OwnerID:      ownerID,
		Permission:   in.Permission,
		AllowedUsers: in.AllowedUsers,
		IsGenerated:  in.IsGenerated,
	}
	doc.StorageRelPath = storage.RelPath(doc.ID, filename)

	if err := s.blobs.Write(doc.StorageRelPath, in.Content); err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		if removeErr := s.blobs.Remove(doc.StorageRelPath); removeErr != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove blob after insert failure",
				"rel_path", doc.StorageRelPath, "error", removeErr)
		}
		return nil, err
	}

	return s.documents.GetByID(ctx, doc.ID)
}

// PatchInput carries partial document updates; nil fields are retained.
type PatchInput struct {
	Name                  *string
	Notes                 *string
	Permission            *models.Permission
	AllowedUsers          *models.UUIDList
	DownloadPreauthorized *bool
}

// Patch substitutes the provided fields into the existing row. Permission
// is revalidated and allowed users are cleared on any transition away from
// "specific".
func (s *DocumentService) Patch(ctx context.Context, documentID string, p authz.Principal, in PatchInput) (*models.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !authz.Editable(doc, p) {
		return nil, models.NewForbiddenError("You cannot edit this document")
	}

	if in.Name != nil {
		doc.Name = *in.Name
	}
	if in.Notes != nil {
		doc.Notes = *in.Notes
	}
	if in.Permission != nil {
		if !in.Permission.Valid() {
			return nil, models.NewValidationError("invalid permission")
		}
		doc.Permission = *in.Permission
	}
	if in.AllowedUsers != nil {
		doc.AllowedUsers = *in.AllowedUsers
	}
	if doc.Permission != models.PermissionSpecific {
		doc.AllowedUsers = models.UUIDList{}
	}
	if in.DownloadPreauthorized != nil {
		doc.DownloadPreauthorized = *in.DownloadPreauthorized
	}

	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, err
	}
	return s.documents.GetByID(ctx, doc.ID)
}

// Delete removes the row (cascading ledger entries) and then best-effort
// removes the blob; a leftover file is logged, not reported.
func (s *DocumentService) Delete(ctx context.Context, documentID string, p authz.Principal) error {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if !authz.Editable(doc, p) {
		return models.NewForbiddenError("You cannot delete this document")
	}

	if err := s.documents.Delete(ctx, documentID); err != nil {
		return err
	}

	if err := s.blobs.Remove(doc.StorageRelPath); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove blob for deleted document",
			"rel_path", doc.StorageRelPath, "error", err)
	}
	return nil
}

// List returns every document the principal can see, newest first.
func (s *DocumentService) List(ctx context.Context, p authz.Principal) ([]models.Document, error) {
	docs, err := s.documents.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if authz.Accessible(&d, p) {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

// Download runs the full download gate and returns the document with its
// bytes. A missing blob under a live row is not-found: deletes are not
// atomic across the row and the file.
func (s *DocumentService) Download(ctx context.Context, documentID string, p authz.Principal, now time.Time) (*models.Document, []byte, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}

	outcome, err := authz.MayDownload(ctx, doc, p, s.grants, now)
	if err != nil {
		return nil, nil, err
	}
	switch outcome {
	case authz.DownloadForbidden:
		return nil, nil, models.NewForbiddenError("You do not have access to this document")
	case authz.DownloadApprovalRequired:
		return nil, nil, models.NewForbiddenError("An approved download request is required")
	}

	data, err := s.blobs.Read(doc.StorageRelPath)
	if err != nil {
		return nil, nil, models.NewNotFoundError("Document file", documentID)
	}
	return doc, data, nil
}
