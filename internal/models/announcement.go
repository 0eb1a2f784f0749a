package models

import "time"

// Announcement is a banner shown to every user while now is within [StartsAt, EndsAt].
type Announcement struct {
	ID        string    `db:"id" json:"id"`
	Content   string    `db:"content" json:"content"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ActiveAt reports whether the announcement window contains t. Both ends are inclusive.
func (a Announcement) ActiveAt(t time.Time) bool {
	return !t.Before(a.StartsAt) && !t.After(a.EndsAt)
}
