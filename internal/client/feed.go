package client

import (
	"sort"

	"disclone/internal/models"
)

// Feed is the message list of the open conversation.
// Every transition is keyed by generation; a transition for another generation is a no-op.
type Feed struct {
	Generation uint64           `json:"generation"`
	Loading    bool             `json:"loading"`
	Messages   []models.Message `json:"messages"`

	// Realtime changes seen while the initial load is in flight.
	pending   []models.Message
	removed   []string
	regrouped map[string][]models.ReactionGroup
}

func loadingFeed(gen uint64) Feed {
	return Feed{Generation: gen, Loading: true}
}

// Loaded installs the fetched list and merges changes buffered during the load.
func (f Feed) Loaded(gen uint64, msgs []models.Message) Feed {
	if gen != f.Generation || !f.Loading {
		return f
	}
	out := make([]models.Message, 0, len(msgs)+len(f.pending))
	out = append(out, msgs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	for _, m := range f.pending {
		out = upsertOrdered(out, m)
	}
	for _, id := range f.removed {
		out = removeMessage(out, id)
	}
	for i := range out {
		if groups, ok := f.regrouped[out[i].ID]; ok {
			out[i].Reactions = groups
		}
	}
	return Feed{Generation: gen, Messages: out}
}

// Insert places msg by creation time, replacing an existing entry with the same id.
func (f Feed) Insert(gen uint64, msg models.Message) Feed {
	if gen != f.Generation {
		return f
	}
	if f.Loading {
		f.pending = upsertOrdered(f.pending, msg)
		return f
	}
	f.Messages = upsertOrdered(f.Messages, msg)
	return f
}

// Remove drops the message with id and detaches replies pointing at it.
func (f Feed) Remove(gen uint64, id string) Feed {
	if gen != f.Generation {
		return f
	}
	if f.Loading {
		f.pending = removeMessage(f.pending, id)
		f.removed = append(append([]string(nil), f.removed...), id)
		return f
	}
	f.Messages = removeMessage(f.Messages, id)
	return f
}

// SetReactions replaces the reaction groups of one displayed message. While loading,
// the groups are kept and applied to the message once the list is installed.
func (f Feed) SetReactions(gen uint64, messageID string, groups []models.ReactionGroup) Feed {
	if gen != f.Generation {
		return f
	}
	if f.Loading {
		regrouped := make(map[string][]models.ReactionGroup, len(f.regrouped)+1)
		for id, g := range f.regrouped {
			regrouped[id] = g
		}
		regrouped[messageID] = groups
		f.regrouped = regrouped
		if i := indexOf(f.pending, messageID); i >= 0 {
			pending := append([]models.Message(nil), f.pending...)
			pending[i].Reactions = groups
			f.pending = pending
		}
		return f
	}
	i := indexOf(f.Messages, messageID)
	if i < 0 {
		return f
	}
	out := append([]models.Message(nil), f.Messages...)
	out[i].Reactions = groups
	f.Messages = out
	return f
}

// Find returns the displayed message with id.
func (f Feed) Find(id string) (models.Message, bool) {
	if i := indexOf(f.Messages, id); i >= 0 {
		return f.Messages[i], true
	}
	if i := indexOf(f.pending, id); i >= 0 {
		return f.pending[i], true
	}
	return models.Message{}, false
}

func indexOf(list []models.Message, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// upsertOrdered returns a new slice with msg inserted after every entry created no later than it.
// Scanning from the tail makes in-order arrival an append.
func upsertOrdered(list []models.Message, msg models.Message) []models.Message {
	if i := indexOf(list, msg.ID); i >= 0 {
		out := append([]models.Message(nil), list...)
		out[i] = msg
		return out
	}
	i := len(list)
	for i > 0 && list[i-1].CreatedAt.After(msg.CreatedAt) {
		i--
	}
	out := make([]models.Message, 0, len(list)+1)
	out = append(out, list[:i]...)
	out = append(out, msg)
	out = append(out, list[i:]...)
	return out
}

func removeMessage(list []models.Message, id string) []models.Message {
	out := make([]models.Message, 0, len(list))
	for _, m := range list {
		if m.ID == id {
			continue
		}
		if m.ReplyToID != nil && *m.ReplyToID == id {
			m.ReplyToID = nil
			m.ReplyTo = nil
		}
		out = append(out, m)
	}
	return out
}
