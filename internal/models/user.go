// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role defines the privilege level of a user account.
type Role string

const (
	// RoleAdmin grants unrestricted access to every document and user operation.
	RoleAdmin Role = "admin"
	// RoleUser is the default role for regular accounts.
	RoleUser Role = "user"
)

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// UserStatus defines the lifecycle state of a user account.
type UserStatus string

const (
	// UserStatusPending marks a self-registered account awaiting admin approval.
	UserStatusPending UserStatus = "pending"
	// UserStatusActive marks an account allowed to log in.
	UserStatusActive UserStatus = "active"
	// UserStatusDisabled marks an account blocked from future logins.
	UserStatusDisabled UserStatus = "disabled"
)

// User represents an account in the document repository.
// Admin accounts are always active; self-registered accounts start pending.
type User struct {
	ID           string     `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:120;not null" json:"username"`
	Email        *string    `gorm:"uniqueIndex;size:255" json:"email"`
	Role         Role       `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	Status       UserStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	Note         string     `gorm:"type:text" json:"note"`
	PasswordHash string     `gorm:"not null" json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// BeforeCreate assigns a UUID primary key when one was not provided.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// EmailString returns the email or "" when unset.
func (u *User) EmailString() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
