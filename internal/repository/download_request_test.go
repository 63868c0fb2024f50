package repository

import (
	"context"
	"testing"
	"time"

	"docvault/internal/database"
	"docvault/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedUserAndDocument(t *testing.T, db *gorm.DB) (owner, requester *models.User, doc *models.Document) {
	t.Helper()
	owner = &models.User{Username: "owner", Role: models.RoleUser, Status: models.UserStatusActive, PasswordHash: "x"}
	requester = &models.User{Username: "requester", Role: models.RoleUser, Status: models.UserStatusActive, PasswordHash: "x"}
	require.NoError(t, db.Create(owner).Error)
	require.NoError(t, db.Create(requester).Error)

	doc = &models.Document{
		Name:           "report.pdf",
		MimeType:       "application/pdf",
		Size:           3,
		OwnerID:        owner.ID,
		Permission:     models.PermissionPublic,
		AllowedUsers:   models.UUIDList{},
		StorageRelPath: "x/report.pdf",
	}
	require.NoError(t, db.Create(doc).Error)
	return owner, requester, doc
}

func TestCreateSecondPendingRequestConflicts(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDownloadRequestRepository(db)
	ctx := context.Background()
	_, requester, doc := seedUserAndDocument(t, db)

	first := &models.DownloadRequest{
		DocumentID: doc.ID, RequesterID: requester.ID,
		ApplicantName: "a", ApplicantCompany: "co", ApplicantContact: "a@b",
		Status: models.RequestStatusPending,
	}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.DownloadRequest{
		DocumentID: doc.ID, RequesterID: requester.ID,
		ApplicantName: "a", ApplicantCompany: "co", ApplicantContact: "a@b",
		Status: models.RequestStatusPending,
	}
	err := repo.Create(ctx, second)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

// A decided request frees the pair for a new pending one.
func TestCreateAllowedAgainAfterDecision(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDownloadRequestRepository(db)
	ctx := context.Background()
	owner, requester, doc := seedUserAndDocument(t, db)

	first := &models.DownloadRequest{
		DocumentID: doc.ID, RequesterID: requester.ID,
		ApplicantName: "a", ApplicantCompany: "co", ApplicantContact: "a@b",
		Status: models.RequestStatusPending,
	}
	require.NoError(t, repo.Create(ctx, first))

	now := time.Now()
	changed, err := repo.Reject(ctx, first.ID, owner.ID, true, now)
	require.NoError(t, err)
	require.True(t, changed)

	second := &models.DownloadRequest{
		DocumentID: doc.ID, RequesterID: requester.ID,
		ApplicantName: "a", ApplicantCompany: "co", ApplicantContact: "a@b",
		Status: models.RequestStatusPending,
	}
	require.NoError(t, repo.Create(ctx, second))
}

func TestApproveThenRejectLeavesApproved(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDownloadRequestRepository(db)
	ctx := context.Background()
	owner, requester, doc := seedUserAndDocument(t, db)

	req := &models.DownloadRequest{
		DocumentID: doc.ID, RequesterID: requester.ID,
		ApplicantName: "a", ApplicantCompany: "co", ApplicantContact: "a@b",
		Status: models.RequestStatusPending,
	}
	require.NoError(t, repo.Create(ctx, req))

	now := time.Now()
	changed, err := repo.Approve(ctx, req.ID, owner.ID, true, now, now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repo.Reject(ctx, req.ID, owner.ID, true, now)
	require.NoError(t, err)
	assert.False(t, changed, "second transition must find status != pending")

	var reloaded models.DownloadRequest
	require.NoError(t, db.First(&reloaded, "id = ?", req.ID).Error)
	assert.Equal(t, models.RequestStatusApproved, reloaded.Status)
	assert.NotNil(t, reloaded.ApprovedAt)
	assert.Nil(t, reloaded.RejectedAt)
	assert.NotNil(t, reloaded.ExpiresAt)
}

func TestDecideOwnerOnlyScoping(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDownloadRequestRepository(db)
	ctx := context.Background()
	_, requester, doc := seedUserAndDocument(t, db)

	outsider := &models.User{Username: "outsider", Role: models.RoleUser, Status: models.UserStatusActive, PasswordHash: "x"}
	require.NoError(t, db.Create(outsider).Error)

	req := &models.DownloadRequest{
		DocumentID: doc.ID, RequesterID: requester.ID,
		ApplicantName: "a", ApplicantCompany: "co", ApplicantContact: "a@b",
		Status: models.RequestStatusPending,
	}
	require.NoError(t, repo.Create(ctx, req))

	now := time.Now()

	// A non-admin who does not own the document cannot decide.
	changed, err := repo.Approve(ctx, req.ID, outsider.ID, true, now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)

	// An admin (ownerOnly=false) can, regardless of ownership.
	changed, err = repo.Approve(ctx, req.ID, outsider.ID, false, now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestHasActiveGrantExpiry(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDownloadRequestRepository(db)
	ctx := context.Background()
	owner, requester, doc := seedUserAndDocument(t, db)

	req := &models.DownloadRequest{
		DocumentID: doc.ID, RequesterID: requester.ID,
		ApplicantName: "a", ApplicantCompany: "co", ApplicantContact: "a@b",
		Status: models.RequestStatusPending,
	}
	require.NoError(t, repo.Create(ctx, req))

	approvedAt := time.Now()
	changed, err := repo.Approve(ctx, req.ID, owner.ID, true, approvedAt, approvedAt.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, changed)

	granted, err := repo.HasActiveGrant(ctx, doc.ID, requester.ID, approvedAt.Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, granted)

	// Past the expiry the grant stops matching; the row stays approved.
	granted, err = repo.HasActiveGrant(ctx, doc.ID, requester.ID, approvedAt.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, granted)

	var reloaded models.DownloadRequest
	require.NoError(t, db.First(&reloaded, "id = ?", req.ID).Error)
	assert.Equal(t, models.RequestStatusApproved, reloaded.Status)
}

func TestListPendingByOwnerScopesToOwnedDocuments(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDownloadRequestRepository(db)
	ctx := context.Background()
	owner, requester, doc := seedUserAndDocument(t, db)

	other := &models.User{Username: "other-owner", Role: models.RoleUser, Status: models.UserStatusActive, PasswordHash: "x"}
	require.NoError(t, db.Create(other).Error)
	otherDoc := &models.Document{
		Name: "other.txt", MimeType: "text/plain", Size: 1,
		OwnerID: other.ID, Permission: models.PermissionPublic,
		AllowedUsers: models.UUIDList{}, StorageRelPath: "y/other.txt",
	}
	require.NoError(t, db.Create(otherDoc).Error)

	for _, d := range []*models.Document{doc, otherDoc} {
		require.NoError(t, repo.Create(ctx, &models.DownloadRequest{
			DocumentID: d.ID, RequesterID: requester.ID,
			ApplicantName: "a", ApplicantCompany: "co", ApplicantContact: "a@b",
			Status: models.RequestStatusPending,
		}))
	}

	mine, err := repo.ListPendingByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, doc.ID, mine[0].DocumentID)
	require.NotNil(t, mine[0].Document)
	assert.Equal(t, "report.pdf", mine[0].Document.Name)

	all, err := repo.ListPendingAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
