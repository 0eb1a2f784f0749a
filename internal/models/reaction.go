package models

// Reaction is a single emoji placed on a message by a user.
// At most one row exists per (message, user, emoji).
type Reaction struct {
	ID        string `db:"id" json:"id"`
	MessageID string `db:"message_id" json:"message_id"`
	UserID    string `db:"user_id" json:"user_id"`
	Emoji     string `db:"emoji" json:"emoji"`
}

// ReactionGroup is the aggregated badge for one emoji on a message.
type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// GroupReactions aggregates reactions by emoji in order of first appearance.
// Duplicate (user, emoji) pairs are counted once.
func GroupReactions(reactions []Reaction) []ReactionGroup {
	if len(reactions) == 0 {
		return nil
	}
	index := map[string]int{}
	seen := map[[2]string]struct{}{}
	var groups []ReactionGroup
	for _, r := range reactions {
		key := [2]string{r.UserID, r.Emoji}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		i, ok := index[r.Emoji]
		if !ok {
			i = len(groups)
			index[r.Emoji] = i
			groups = append(groups, ReactionGroup{Emoji: r.Emoji})
		}
		groups[i].Count++
		groups[i].Users = append(groups[i].Users, r.UserID)
	}
	return groups
}
