package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"disclone/internal/client"
	"disclone/internal/models"
)

var ErrUnknownCommand = errors.New("unknown command")

// wireCommand is the JSON shape of every inbound socket frame.
type wireCommand struct {
	Type        string       `json:"type"`
	View        *models.View `json:"view,omitempty"`
	Text        string       `json:"text,omitempty"`
	MessageID   string       `json:"message_id,omitempty"`
	ChannelID   string       `json:"channel_id,omitempty"`
	Emoji       string       `json:"emoji,omitempty"`
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	Confirmed   bool         `json:"confirmed,omitempty"`
	ID          string       `json:"id,omitempty"`
}

// DecodeCommand parses one inbound frame into a session command.
func DecodeCommand(data []byte) (client.Command, error) {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	switch w.Type {
	case "select_view":
		if w.View == nil {
			return nil, models.ErrInvalidView
		}
		return client.SelectView{View: *w.View}, nil
	case "clear_view":
		return client.ClearView{}, nil
	case "set_draft":
		return client.SetDraft{Text: w.Text}, nil
	case "set_reply":
		return client.SetReply{MessageID: w.MessageID}, nil
	case "send":
		return client.Send{Text: w.Text}, nil
	case "forward":
		return client.Forward{MessageID: w.MessageID, ChannelID: w.ChannelID}, nil
	case "react":
		return client.React{MessageID: w.MessageID, Emoji: w.Emoji}, nil
	case "delete_message":
		return client.DeleteMessage{MessageID: w.MessageID}, nil
	case "create_channel":
		return client.CreateChannel{Name: w.Name, Description: w.Description}, nil
	case "delete_channel":
		return client.DeleteChannel{ChannelID: w.ChannelID, Confirmed: w.Confirmed}, nil
	case "dismiss_announcement":
		return client.DismissAnnouncement{ID: w.ID}, nil
	case "dismiss_notice":
		return client.DismissNotice{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, w.Type)
	}
}

// Frame is an outbound socket message.
type Frame struct {
	Type  string        `json:"type"`
	State *client.State `json:"state,omitempty"`
	Error string        `json:"error,omitempty"`
}
