package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxContentLength is the longest message content accepted, in characters.
const MaxContentLength = 4000

// Message is a chat message. Exactly one of ChannelID and RecipientID is set.
type Message struct {
	ID              string    `db:"id" json:"id"`
	Content         string    `db:"content" json:"content"`
	AuthorID        string    `db:"author_id" json:"author_id"`
	ChannelID       *string   `db:"channel_id" json:"channel_id"`
	RecipientID     *string   `db:"recipient_id" json:"recipient_id"`
	ReplyToID       *string   `db:"reply_to_id" json:"reply_to_id"`
	ForwardedFromID *string   `db:"forwarded_from_id" json:"forwarded_from_id"`
	IsGIF           bool      `db:"is_gif" json:"is_gif"`
	GIFURL          *string   `db:"gif_url" json:"gif_url,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`

	// Denormalized at read time.
	Author    *Profile        `db:"-" json:"author,omitempty"`
	ReplyTo   *Message        `db:"-" json:"reply_to,omitempty"`
	Reactions []ReactionGroup `db:"-" json:"reactions,omitempty"`
}

// NewMessage carries the fields the composer supplies for an insert.
// Empty strings stand for NULL.
type NewMessage struct {
	Content         string
	AuthorID        string
	ChannelID       string
	RecipientID     string
	ReplyToID       string
	ForwardedFromID string
	IsGIF           bool
	GIFURL          string
}

// Validate rejects empty or oversized content, a missing author and any target other than
// exactly one of channel or recipient.
func (m NewMessage) Validate() error {
	if m.AuthorID == "" {
		return ErrMissingAuthor
	}
	if strings.TrimSpace(m.Content) == "" && !(m.IsGIF && m.GIFURL != "") {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(m.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	if (m.ChannelID == "") == (m.RecipientID == "") {
		return ErrInvalidTarget
	}
	return nil
}

// Optional returns nil for an empty string.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value dereferences an optional string.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
