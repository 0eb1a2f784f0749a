package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"disclone/internal/models"
)

const channelColumns = `id, name, description, created_by, created_at`

// ChannelRepository abstracts channel persistence.
type ChannelRepository interface {
	ListChannels(ctx context.Context) ([]models.Channel, error)
	GetChannel(ctx context.Context, id string) (models.Channel, error)
	CreateChannel(ctx context.Context, name, description, createdBy string) (models.Channel, error)
	DeleteChannel(ctx context.Context, id string) error
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

// ListChannels returns every channel ordered by name.
func (r *ChannelRepo) ListChannels(ctx context.Context) ([]models.Channel, error) {
	channels := []models.Channel{}
	err := r.db.SelectContext(ctx, &channels, `SELECT `+channelColumns+` FROM channels ORDER BY name`)
	return channels, mapError(err)
}

// GetChannel fetches a channel by id.
func (r *ChannelRepo) GetChannel(ctx context.Context, id string) (models.Channel, error) {
	var ch models.Channel
	err := r.db.GetContext(ctx, &ch, `SELECT `+channelColumns+` FROM channels WHERE id=$1`, id)
	return ch, mapError(err)
}

// CreateChannel inserts a channel; the name must already be a slug. Duplicates yield ErrConflict.
func (r *ChannelRepo) CreateChannel(ctx context.Context, name, description, createdBy string) (models.Channel, error) {
	var ch models.Channel
	err := r.db.GetContext(ctx, &ch, `INSERT INTO channels (name, description, created_by) VALUES ($1, $2, $3) RETURNING `+channelColumns,
		name, models.Optional(description), createdBy)
	return ch, mapError(err)
}

// DeleteChannel removes a channel and, by cascade, its messages.
func (r *ChannelRepo) DeleteChannel(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id=$1`, id)
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
