package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"disclone/internal/models"
)

const profileColumns = `id, username, is_admin, avatar_url, created_at`

// ProfileRepository abstracts profile persistence.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, username, passwordHash string, isAdmin bool) (models.Profile, error)
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	GetCredentials(ctx context.Context, username string) (models.Credentials, error)
	ListOtherProfiles(ctx context.Context, excludeID string, limit int) ([]models.Profile, error)
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// CreateProfile inserts a profile. A taken username yields ErrConflict.
func (r *ProfileRepo) CreateProfile(ctx context.Context, username, passwordHash string, isAdmin bool) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `INSERT INTO profiles (username, password_hash, is_admin) VALUES ($1, $2, $3) RETURNING `+profileColumns,
		username, passwordHash, isAdmin)
	return p, mapError(err)
}

// GetProfile fetches a profile by id.
func (r *ProfileRepo) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, id)
	return p, mapError(err)
}

// GetCredentials looks a username up case-insensitively.
func (r *ProfileRepo) GetCredentials(ctx context.Context, username string) (models.Credentials, error) {
	var c models.Credentials
	err := r.db.GetContext(ctx, &c, `SELECT id, password_hash FROM profiles WHERE LOWER(username)=LOWER($1)`, username)
	return c, mapError(err)
}

// ListOtherProfiles returns up to limit profiles other than excludeID.
func (r *ProfileRepo) ListOtherProfiles(ctx context.Context, excludeID string, limit int) ([]models.Profile, error) {
	profiles := []models.Profile{}
	err := r.db.SelectContext(ctx, &profiles, `SELECT `+profileColumns+` FROM profiles WHERE id<>$1 ORDER BY username LIMIT $2`, excludeID, limit)
	return profiles, mapError(err)
}
