// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the owner of one public page.
//
// Email is the identity key coming from the auth provider. Pseudo is the
// public handle used in page URLs; it is allocated once on first login and
// never changes afterwards. Both are UNIQUE in the store.
type User struct {
	ID        string    `json:"id"        db:"id"`
	Email     string    `json:"email"     db:"email"`
	Name      string    `json:"name"      db:"name"`   // display name from the provider
	Pseudo    string    `json:"pseudo"    db:"pseudo"` // public handle, e.g. "ada_lovelace"
	Theme     string    `json:"theme"     db:"theme"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
