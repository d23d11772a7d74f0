// Package models defines server-side data models persisted in the database.
package models

import (
	"database/sql"
	"time"
)

// User is an SGICS account. Users are never hard-deleted; IsActive=false is
// the terminal state.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash []byte
	IsStaff      bool
	// IsTreasurer is nullable in storage: accounts created before the
	// treasury capability existed carry NULL, which means false.
	IsTreasurer sql.NullBool
	IsSuperuser bool
	IsActive    bool
	CreatedAt   time.Time
}

// Treasurer reports the treasury capability with NULL treated as false.
func (u *User) Treasurer() bool {
	return u.IsTreasurer.Valid && u.IsTreasurer.Bool
}

// RoleUpdate is a partial update of capability flags; nil fields are kept.
type RoleUpdate struct {
	IsStaff     *bool
	IsTreasurer *bool
}
