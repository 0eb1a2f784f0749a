package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"disclone/internal/models"
)

const announcementColumns = `id, content, starts_at, ends_at, created_by, created_at`

// AnnouncementRepository abstracts announcement persistence.
type AnnouncementRepository interface {
	ListActive(ctx context.Context, now time.Time) ([]models.Announcement, error)
	CreateAnnouncement(ctx context.Context, content string, startsAt, endsAt time.Time, createdBy string) (models.Announcement, error)
}

// AnnouncementRepo is a sqlx implementation of AnnouncementRepository.
type AnnouncementRepo struct {
	db *sqlx.DB
}

// NewAnnouncementRepo constructs an AnnouncementRepo.
func NewAnnouncementRepo(db *sqlx.DB) *AnnouncementRepo {
	return &AnnouncementRepo{db: db}
}

// ListActive returns announcements with starts_at <= now <= ends_at.
func (r *AnnouncementRepo) ListActive(ctx context.Context, now time.Time) ([]models.Announcement, error) {
	anns := []models.Announcement{}
	err := r.db.SelectContext(ctx, &anns, `SELECT `+announcementColumns+` FROM announcements
        WHERE starts_at <= $1 AND ends_at >= $1 ORDER BY starts_at`, now)
	return anns, mapError(err)
}

// CreateAnnouncement inserts an announcement window.
func (r *AnnouncementRepo) CreateAnnouncement(ctx context.Context, content string, startsAt, endsAt time.Time, createdBy string) (models.Announcement, error) {
	var ann models.Announcement
	err := r.db.GetContext(ctx, &ann, `INSERT INTO announcements (content, starts_at, ends_at, created_by) VALUES ($1, $2, $3, $4) RETURNING `+announcementColumns,
		content, startsAt, endsAt, createdBy)
	return ann, mapError(err)
}
