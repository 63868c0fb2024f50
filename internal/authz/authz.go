// Package authz implements the pure authorization kernel: predicates over
// already-loaded entities, with no I/O except the ledger probe handed in by
// the caller.
package authz

import (
	"context"
	"time"

	"docvault/internal/models"
)

// Principal is the authenticated identity a request acts as. Role comes from
// the session token, not from a live user lookup.
type Principal struct {
	ID   string
	Role models.Role
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// Accessible reports whether the principal may see the document's metadata
// and apply for its download. Private documents are owner-only.
func Accessible(doc *models.Document, p Principal) bool {
	if p.IsAdmin() {
		return true
	}
	if doc.OwnerID == p.ID {
		return true
	}
	if doc.Permission == models.PermissionPublic {
		return true
	}
	if doc.Permission == models.PermissionSpecific && doc.AllowedUsers.Contains(p.ID) {
		return true
	}
	return false
}

// Editable reports whether the principal may mutate or delete the document.
func Editable(doc *models.Document, p Principal) bool {
	return p.IsAdmin() || doc.OwnerID == p.ID
}

// DownloadOutcome is the result of the download gate.
type DownloadOutcome int

const (
	// DownloadAllowed means the bytes may be served.
	DownloadAllowed DownloadOutcome = iota
	// DownloadForbidden means the document is not accessible to the principal.
	DownloadForbidden
	// DownloadApprovalRequired means the document is visible but the
	// principal holds no unexpired approved grant.
	DownloadApprovalRequired
)

// GrantProbe reports whether an unexpired approved download request exists
// for the given (document, user) pair. Implemented by the request ledger.
type GrantProbe interface {
	HasActiveGrant(ctx context.Context, documentID, userID string, now time.Time) (bool, error)
}

// MayDownload layers the release gate on top of Accessible. Admins, owners
// and preauthorized documents skip the ledger; everyone else needs an
// approved grant whose expiry has not passed.
func MayDownload(ctx context.Context, doc *models.Document, p Principal, probe GrantProbe, now time.Time) (DownloadOutcome, error) {
	if !Accessible(doc, p) {
		return DownloadForbidden, nil
	}
	if p.IsAdmin() || doc.OwnerID == p.ID || doc.DownloadPreauthorized {
		return DownloadAllowed, nil
	}
	granted, err := probe.HasActiveGrant(ctx, doc.ID, p.ID, now)
	if err != nil {
		return DownloadApprovalRequired, err
	}
	if granted {
		return DownloadAllowed, nil
	}
	return DownloadApprovalRequired, nil
}
