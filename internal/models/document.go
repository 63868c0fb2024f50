package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission defines who can see a document.
type Permission string

const (
	// PermissionPublic makes a document visible to every authenticated user.
	PermissionPublic Permission = "public"
	// PermissionPrivate restricts a document to its owner (and admins).
	PermissionPrivate Permission = "private"
	// PermissionSpecific restricts a document to an explicit set of users.
	PermissionSpecific Permission = "specific"
)

// Valid reports whether the permission is one of the known variants.
func (p Permission) Valid() bool {
	return p == PermissionPublic || p == PermissionPrivate || p == PermissionSpecific
}

// UUIDList is a set of user IDs stored as a JSON array in a single column,
// so Postgres and SQLite behave identically.
type UUIDList []string

// Value implements driver.Valuer.
func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		l = UUIDList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *UUIDList) Scan(src any) error {
	if src == nil {
		*l = UUIDList{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into UUIDList", src)
	}
	if len(data) == 0 {
		*l = UUIDList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// Contains reports whether the list holds the given user ID.
func (l UUIDList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Document represents a stored file with its visibility metadata.
// The bytes live in the blob store at StorageRelPath; the row carries
// everything the authorization kernel needs.
type Document struct {
	ID                    string     `gorm:"type:uuid;primaryKey" json:"id"`
	Name                  string     `gorm:"size:255;not null" json:"name"`
	MimeType              string     `gorm:"size:255;not null;default:'application/octet-stream'" json:"type"`
	Size                  int64      `gorm:"not null" json:"size"`
	Notes                 string     `gorm:"type:text" json:"notes"`
	OwnerID               string     `gorm:"type:uuid;not null;index" json:"ownerId"`
	Owner                 *User      `gorm:"foreignKey:OwnerID" json:"-"`
	Permission            Permission `gorm:"type:varchar(16);not null;default:'public'" json:"permission"`
	AllowedUsers          UUIDList   `gorm:"type:text" json:"allowedUsers"`
	IsGenerated           bool       `gorm:"not null;default:false" json:"isGenerated"`
	DownloadPreauthorized bool       `gorm:"not null;default:false" json:"downloadPreauthorized"`
	StorageRelPath        string     `gorm:"size:512;not null" json:"-"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns a UUID primary key when one was not provided.
func (d *Document) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// OwnerName returns the preloaded owner's username or "" when not loaded.
func (d *Document) OwnerName() string {
	if d.Owner == nil {
		return ""
	}
	return d.Owner.Username
}
