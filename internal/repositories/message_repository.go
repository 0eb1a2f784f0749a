package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"disclone/internal/models"
)

// MessageRepository defines interactions for messages.
type MessageRepository interface {
	ListMessages(ctx context.Context, view models.View, viewerID string) ([]models.Message, error)
	GetMessage(ctx context.Context, id string) (models.Message, error)
	CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db        *sqlx.DB
	reactions ReactionRepository
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB, reactions ReactionRepository) *MessageRepo {
	return &MessageRepo{db: db, reactions: reactions}
}

const denormalizedMessageQuery = `SELECT m.id, m.content, m.author_id, m.channel_id, m.recipient_id, m.reply_to_id,
        m.forwarded_from_id, m.is_gif, m.gif_url, m.created_at,
        a.username AS author_username, a.is_admin AS author_is_admin, a.avatar_url AS author_avatar_url,
        a.created_at AS author_created_at,
        r.content AS reply_content, r.author_id AS reply_author_id, r.created_at AS reply_created_at,
        ra.username AS reply_author_username
    FROM messages m
    JOIN profiles a ON a.id = m.author_id
    LEFT JOIN messages r ON r.id = m.reply_to_id
    LEFT JOIN profiles ra ON ra.id = r.author_id`

type messageRow struct {
	models.Message
	AuthorUsername      string     `db:"author_username"`
	AuthorIsAdmin       bool       `db:"author_is_admin"`
	AuthorAvatarURL     *string    `db:"author_avatar_url"`
	AuthorCreatedAt     time.Time  `db:"author_created_at"`
	ReplyContent        *string    `db:"reply_content"`
	ReplyAuthorID       *string    `db:"reply_author_id"`
	ReplyCreatedAt      *time.Time `db:"reply_created_at"`
	ReplyAuthorUsername *string    `db:"reply_author_username"`
}

func (row messageRow) toMessage() models.Message {
	msg := row.Message
	msg.Author = &models.Profile{
		ID:        row.AuthorID,
		Username:  row.AuthorUsername,
		IsAdmin:   row.AuthorIsAdmin,
		AvatarURL: row.AuthorAvatarURL,
		CreatedAt: row.AuthorCreatedAt,
	}
	if row.ReplyToID != nil && row.ReplyContent != nil {
		reply := &models.Message{ID: *row.ReplyToID, Content: *row.ReplyContent}
		if row.ReplyAuthorID != nil {
			reply.AuthorID = *row.ReplyAuthorID
		}
		if row.ReplyCreatedAt != nil {
			reply.CreatedAt = *row.ReplyCreatedAt
		}
		if row.ReplyAuthorUsername != nil {
			reply.Author = &models.Profile{ID: reply.AuthorID, Username: *row.ReplyAuthorUsername}
		}
		msg.ReplyTo = reply
	}
	return msg
}

// viewFilter renders the WHERE clause matching exactly the messages of view.
func viewFilter(view models.View, viewerID string) (string, []any, error) {
	if err := view.Validate(); err != nil {
		return "", nil, err
	}
	if view.Kind == models.ViewChannel {
		return `m.channel_id = $1`, []any{view.ID}, nil
	}
	if viewerID == "" {
		return "", nil, errors.New("direct view requires a viewer")
	}
	return `((m.author_id = $1 AND m.recipient_id = $2) OR (m.author_id = $2 AND m.recipient_id = $1))`,
		[]any{viewerID, view.ID}, nil
}

// ListMessages returns the view's messages ordered by creation, denormalized with author,
// reply target and reaction groups.
func (r *MessageRepo) ListMessages(ctx context.Context, view models.View, viewerID string) ([]models.Message, error) {
	where, args, err := viewFilter(view, viewerID)
	if err != nil {
		return nil, err
	}
	// No conversation is keyed by a non-uuid id.
	if uuid.Validate(view.ID) != nil {
		return []models.Message{}, nil
	}
	var rows []messageRow
	query := fmt.Sprintf("%s WHERE %s ORDER BY m.created_at ASC, m.id ASC", denormalizedMessageQuery, where)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError(err)
	}

	msgs := make([]models.Message, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toMessage())
		ids = append(ids, row.ID)
	}
	if err := r.attachReactions(ctx, msgs, ids); err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetMessage retrieves a single denormalized message.
func (r *MessageRepo) GetMessage(ctx context.Context, id string) (models.Message, error) {
	var row messageRow
	if err := r.db.GetContext(ctx, &row, denormalizedMessageQuery+` WHERE m.id = $1`, id); err != nil {
		return models.Message{}, mapError(err)
	}
	msgs := []models.Message{row.toMessage()}
	if err := r.attachReactions(ctx, msgs, []string{id}); err != nil {
		return models.Message{}, err
	}
	return msgs[0], nil
}

func (r *MessageRepo) attachReactions(ctx context.Context, msgs []models.Message, ids []string) error {
	if r.reactions == nil || len(ids) == 0 {
		return nil
	}
	reactions, err := r.reactions.ListReactions(ctx, ids)
	if err != nil {
		return err
	}
	groups := ReactionsByMessage(reactions)
	for i := range msgs {
		msgs[i].Reactions = groups[msgs[i].ID]
	}
	return nil
}

// CreateMessage validates and stores a message.
func (r *MessageRepo) CreateMessage(ctx context.Context, in models.NewMessage) (models.Message, error) {
	if err := in.Validate(); err != nil {
		return models.Message{}, err
	}
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `INSERT INTO messages
        (content, author_id, channel_id, recipient_id, reply_to_id, forwarded_from_id, is_gif, gif_url)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, content, author_id, channel_id, recipient_id, reply_to_id, forwarded_from_id, is_gif, gif_url, created_at`,
		in.Content, in.AuthorID, models.Optional(in.ChannelID), models.Optional(in.RecipientID),
		models.Optional(in.ReplyToID), models.Optional(in.ForwardedFromID), in.IsGIF, models.Optional(in.GIFURL))
	return msg, mapError(err)
}

// DeleteMessage removes a message.
func (r *MessageRepo) DeleteMessage(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
