package client

import (
	"errors"

	"disclone/internal/models"
	"disclone/internal/repositories"
)

var (
	ErrForbidden = errors.New("not allowed")
	ErrNoView    = errors.New("no conversation is open")
)

// Notice kinds.
const (
	NoticeAuth         = "auth"
	NoticeConnectivity = "connectivity"
	NoticeWrite        = "write"
)

// Notice is a user-facing report of a failed write.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func noticeFor(err error) *Notice {
	switch {
	case repositories.IsConnectivity(err):
		return &Notice{Kind: NoticeConnectivity, Message: "cannot reach the server, check your connection"}
	case errors.Is(err, ErrForbidden):
		return &Notice{Kind: NoticeAuth, Message: "you are not allowed to do that"}
	case errors.Is(err, repositories.ErrConflict):
		return &Notice{Kind: NoticeWrite, Message: "that name is already taken"}
	default:
		return &Notice{Kind: NoticeWrite, Message: err.Error()}
	}
}

// State is an immutable snapshot of one client session.
// Slices are never modified in place, so snapshots may be shared.
type State struct {
	Profile       models.Profile        `json:"profile"`
	View          *models.View          `json:"view"`
	Feed          Feed                  `json:"feed"`
	ReplyTo       *models.Message       `json:"reply_to,omitempty"`
	Draft         string                `json:"draft"`
	Channels      []models.Channel      `json:"channels"`
	Candidates    []models.Profile      `json:"direct_messages"`
	Announcements []models.Announcement `json:"announcements"`
	Notice        *Notice               `json:"notice,omitempty"`
}

func (s State) hasChannel(id string) bool {
	for _, ch := range s.Channels {
		if ch.ID == id {
			return true
		}
	}
	return false
}

func withoutAnnouncement(list []models.Announcement, id string) []models.Announcement {
	out := make([]models.Announcement, 0, len(list))
	for _, a := range list {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}
