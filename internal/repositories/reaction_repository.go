package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"disclone/internal/models"
)

// ReactionRepository abstracts reaction persistence.
type ReactionRepository interface {
	UpsertReaction(ctx context.Context, messageID, userID, emoji string) (models.Reaction, error)
	ListReactions(ctx context.Context, messageIDs []string) ([]models.Reaction, error)
}

// ReactionRepo is a sqlx implementation of ReactionRepository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// UpsertReaction adds a reaction, returning the existing row when the triple is already present.
func (r *ReactionRepo) UpsertReaction(ctx context.Context, messageID, userID, emoji string) (models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.GetContext(ctx, &reaction, `INSERT INTO reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)
        ON CONFLICT (message_id, user_id, emoji) DO UPDATE SET emoji = EXCLUDED.emoji
        RETURNING id, message_id, user_id, emoji`, messageID, userID, emoji)
	return reaction, mapError(err)
}

// ListReactions returns the reactions on the given messages.
func (r *ReactionRepo) ListReactions(ctx context.Context, messageIDs []string) ([]models.Reaction, error) {
	reactions := []models.Reaction{}
	if len(messageIDs) == 0 {
		return reactions, nil
	}
	err := r.db.SelectContext(ctx, &reactions, `SELECT id, message_id, user_id, emoji FROM reactions
        WHERE message_id = ANY($1::uuid[]) ORDER BY message_id, emoji, user_id`, pq.Array(messageIDs))
	return reactions, mapError(err)
}

// ReactionsByMessage groups reactions per message id.
func ReactionsByMessage(reactions []models.Reaction) map[string][]models.ReactionGroup {
	byMessage := map[string][]models.Reaction{}
	for _, r := range reactions {
		byMessage[r.MessageID] = append(byMessage[r.MessageID], r)
	}
	groups := make(map[string][]models.ReactionGroup, len(byMessage))
	for id, rs := range byMessage {
		groups[id] = models.GroupReactions(rs)
	}
	return groups
}
