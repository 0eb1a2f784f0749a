package models

import (
	"regexp"
	"strings"
	"time"
)

// Channel is a named public conversation.
type Channel struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

var whitespace = regexp.MustCompile(`\s+`)

// ChannelSlug lowercases a proposed channel name and joins its words with hyphens.
func ChannelSlug(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
