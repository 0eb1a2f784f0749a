package client

import "disclone/internal/models"

// Command is a user action applied by the session loop.
type Command interface {
	command()
}

// SelectView opens a conversation, replacing the current one.
type SelectView struct{ View models.View }

// ClearView closes the open conversation.
type ClearView struct{}

// SetDraft records the composer input.
type SetDraft struct{ Text string }

// SetReply tags a displayed message as the reply target; an empty id clears it.
type SetReply struct{ MessageID string }

// Send posts Text, or the draft when Text is empty, to the open conversation.
type Send struct{ Text string }

// Forward copies a displayed message into another channel.
type Forward struct {
	MessageID string
	ChannelID string
}

// React adds an emoji to a displayed message.
type React struct {
	MessageID string
	Emoji     string
}

// DeleteMessage removes a displayed message; allowed for its author and admins.
type DeleteMessage struct{ MessageID string }

// CreateChannel adds a channel; admin only.
type CreateChannel struct {
	Name        string
	Description string
}

// DeleteChannel removes a channel; admin only and only once Confirmed.
type DeleteChannel struct {
	ChannelID string
	Confirmed bool
}

// DismissAnnouncement hides a banner until the next refresh.
type DismissAnnouncement struct{ ID string }

// DismissNotice clears the current notice.
type DismissNotice struct{}

func (SelectView) command()          {}
func (ClearView) command()           {}
func (SetDraft) command()            {}
func (SetReply) command()            {}
func (Send) command()                {}
func (Forward) command()             {}
func (React) command()               {}
func (DeleteMessage) command()       {}
func (CreateChannel) command()       {}
func (DeleteChannel) command()       {}
func (DismissAnnouncement) command() {}
func (DismissNotice) command()       {}
