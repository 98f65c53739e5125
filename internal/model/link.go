package model

import "time"

// SocialLink is one entry on a user's page.
//
// Pseudo here is the link's own display handle (the account name on the
// target platform), unrelated to User.Pseudo. Clicks only ever grows.
type SocialLink struct {
	ID          string    `json:"id"          db:"id"`
	UserID      string    `json:"userId"      db:"user_id"`
	Title       string    `json:"title"       db:"title"`
	URL         string    `json:"url"         db:"url"`
	Pseudo      string    `json:"pseudo"      db:"pseudo"`
	Description string    `json:"description" db:"description"`
	Active      bool      `json:"active"      db:"active"`
	Clicks      int64     `json:"clicks"      db:"clicks"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}
