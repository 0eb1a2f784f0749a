package models

// ViewKind tags the conversation surface a View selects.
type ViewKind string

const (
	ViewChannel ViewKind = "channel"
	ViewDirect  ViewKind = "dm"
)

// View identifies the displayed conversation: a channel, or a direct-message peer.
type View struct {
	Kind ViewKind `json:"type"`
	ID   string   `json:"id"`
	Name string   `json:"name,omitempty"`
}

// Validate checks the view kind and id.
func (v View) Validate() error {
	if v.ID == "" {
		return ErrInvalidView
	}
	switch v.Kind {
	case ViewChannel, ViewDirect:
		return nil
	default:
		return ErrInvalidView
	}
}

// Includes reports whether msg belongs to this view as seen by viewerID.
// A channel view matches channel_id; a direct view matches the author/recipient pair in either direction.
func (v View) Includes(msg Message, viewerID string) bool {
	switch v.Kind {
	case ViewChannel:
		return msg.ChannelID != nil && *msg.ChannelID == v.ID
	case ViewDirect:
		if msg.ChannelID != nil || msg.RecipientID == nil {
			return false
		}
		recipient := *msg.RecipientID
		return (msg.AuthorID == viewerID && recipient == v.ID) ||
			(msg.AuthorID == v.ID && recipient == viewerID)
	default:
		return false
	}
}

// Target fills the channel or recipient field of a new message from the view.
func (v View) Target(m NewMessage) NewMessage {
	m.ChannelID, m.RecipientID = "", ""
	if v.Kind == ViewChannel {
		m.ChannelID = v.ID
	} else {
		m.RecipientID = v.ID
	}
	return m
}
