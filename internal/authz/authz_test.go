package authz

import (
	"context"
	"testing"
	"time"

	"docvault/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProbe struct {
	granted bool
	err     error
}

func (p stubProbe) HasActiveGrant(_ context.Context, _, _ string, _ time.Time) (bool, error) {
	return p.granted, p.err
}

func TestAccessible(t *testing.T) {
	owner := Principal{ID: "owner-1", Role: models.RoleUser}
	admin := Principal{ID: "admin-1", Role: models.RoleAdmin}
	listed := Principal{ID: "listed-1", Role: models.RoleUser}
	stranger := Principal{ID: "stranger-1", Role: models.RoleUser}

	tests := []struct {
		name string
		doc  models.Document
		p    Principal
		want bool
	}{
		{"admin sees private", models.Document{OwnerID: owner.ID, Permission: models.PermissionPrivate}, admin, true},
		{"owner sees private", models.Document{OwnerID: owner.ID, Permission: models.PermissionPrivate}, owner, true},
		{"stranger blocked from private", models.Document{OwnerID: owner.ID, Permission: models.PermissionPrivate}, stranger, false},
		{"anyone sees public", models.Document{OwnerID: owner.ID, Permission: models.PermissionPublic}, stranger, true},
		{"listed user sees specific", models.Document{OwnerID: owner.ID, Permission: models.PermissionSpecific, AllowedUsers: models.UUIDList{listed.ID}}, listed, true},
		{"unlisted user blocked from specific", models.Document{OwnerID: owner.ID, Permission: models.PermissionSpecific, AllowedUsers: models.UUIDList{listed.ID}}, stranger, false},
		{"owner sees own specific without listing", models.Document{OwnerID: owner.ID, Permission: models.PermissionSpecific}, owner, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Accessible(&tt.doc, tt.p))
		})
	}
}

// Granting the admin role can only widen visibility, never narrow it.
func TestAccessibleMonotoneInRole(t *testing.T) {
	docs := []models.Document{
		{OwnerID: "o", Permission: models.PermissionPrivate},
		{OwnerID: "o", Permission: models.PermissionPublic},
		{OwnerID: "o", Permission: models.PermissionSpecific, AllowedUsers: models.UUIDList{"u"}},
		{OwnerID: "u", Permission: models.PermissionPrivate},
	}
	for i := range docs {
		asUser := Accessible(&docs[i], Principal{ID: "u", Role: models.RoleUser})
		asAdmin := Accessible(&docs[i], Principal{ID: "u", Role: models.RoleAdmin})
		if asUser {
			assert.True(t, asAdmin, "doc %d: admin lost access the user had", i)
		}
	}
}

func TestEditable(t *testing.T) {
	doc := models.Document{OwnerID: "owner-1", Permission: models.PermissionPublic}

	assert.True(t, Editable(&doc, Principal{ID: "owner-1", Role: models.RoleUser}))
	assert.True(t, Editable(&doc, Principal{ID: "someone", Role: models.RoleAdmin}))
	assert.False(t, Editable(&doc, Principal{ID: "someone", Role: models.RoleUser}))
}

func TestMayDownload(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	owner := Principal{ID: "owner-1", Role: models.RoleUser}
	stranger := Principal{ID: "stranger-1", Role: models.RoleUser}

	t.Run("inaccessible is forbidden before the ledger is consulted", func(t *testing.T) {
		doc := models.Document{ID: "d", OwnerID: owner.ID, Permission: models.PermissionPrivate}
		out, err := MayDownload(ctx, &doc, stranger, stubProbe{granted: true}, now)
		require.NoError(t, err)
		assert.Equal(t, DownloadForbidden, out)
	})

	t.Run("owner downloads without a grant", func(t *testing.T) {
		doc := models.Document{ID: "d", OwnerID: owner.ID, Permission: models.PermissionPrivate}
		out, err := MayDownload(ctx, &doc, owner, stubProbe{}, now)
		require.NoError(t, err)
		assert.Equal(t, DownloadAllowed, out)
	})

	t.Run("admin downloads without a grant", func(t *testing.T) {
		doc := models.Document{ID: "d", OwnerID: owner.ID, Permission: models.PermissionPrivate}
		out, err := MayDownload(ctx, &doc, Principal{ID: "a", Role: models.RoleAdmin}, stubProbe{}, now)
		require.NoError(t, err)
		assert.Equal(t, DownloadAllowed, out)
	})

	t.Run("preauthorized skips the ledger for accessible users", func(t *testing.T) {
		doc := models.Document{ID: "d", OwnerID: owner.ID, Permission: models.PermissionPublic, DownloadPreauthorized: true}
		out, err := MayDownload(ctx, &doc, stranger, stubProbe{granted: false}, now)
		require.NoError(t, err)
		assert.Equal(t, DownloadAllowed, out)
	})

	t.Run("accessible without grant needs approval", func(t *testing.T) {
		doc := models.Document{ID: "d", OwnerID: owner.ID, Permission: models.PermissionPublic}
		out, err := MayDownload(ctx, &doc, stranger, stubProbe{granted: false}, now)
		require.NoError(t, err)
		assert.Equal(t, DownloadApprovalRequired, out)
	})

	t.Run("active grant allows the download", func(t *testing.T) {
		doc := models.Document{ID: "d", OwnerID: owner.ID, Permission: models.PermissionPublic}
		out, err := MayDownload(ctx, &doc, stranger, stubProbe{granted: true}, now)
		require.NoError(t, err)
		assert.Equal(t, DownloadAllowed, out)
	})
}
