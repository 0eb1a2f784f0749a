package models

import "time"

// Profile is the public identity record of a user.
type Profile struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	IsAdmin   bool      `db:"is_admin" json:"is_admin"`
	AvatarURL *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Credentials pairs a profile id with its stored password hash.
type Credentials struct {
	ProfileID    string `db:"id"`
	PasswordHash string `db:"password_hash"`
}
