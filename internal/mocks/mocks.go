package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"disclone/internal/models"
	"disclone/internal/repositories"
)

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) CreateProfile(ctx context.Context, username, passwordHash string, isAdmin bool) (models.Profile, error) {
	args := m.Called(ctx, username, passwordHash, isAdmin)
	var p models.Profile
	if val := args.Get(0); val != nil {
		p = val.(models.Profile)
	}
	return p, args.Error(1)
}

func (m *ProfileRepositoryMock) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	args := m.Called(ctx, id)
	var p models.Profile
	if val := args.Get(0); val != nil {
		p = val.(models.Profile)
	}
	return p, args.Error(1)
}

func (m *ProfileRepositoryMock) GetCredentials(ctx context.Context, username string) (models.Credentials, error) {
	args := m.Called(ctx, username)
	var creds models.Credentials
	if val := args.Get(0); val != nil {
		creds = val.(models.Credentials)
	}
	return creds, args.Error(1)
}

func (m *ProfileRepositoryMock) ListOtherProfiles(ctx context.Context, excludeID string, limit int) ([]models.Profile, error) {
	args := m.Called(ctx, excludeID, limit)
	var list []models.Profile
	if val := args.Get(0); val != nil {
		list = val.([]models.Profile)
	}
	return list, args.Error(1)
}

type ChannelRepositoryMock struct {
	mock.Mock
}

func (m *ChannelRepositoryMock) ListChannels(ctx context.Context) ([]models.Channel, error) {
	args := m.Called(ctx)
	var list []models.Channel
	if val := args.Get(0); val != nil {
		list = val.([]models.Channel)
	}
	return list, args.Error(1)
}

func (m *ChannelRepositoryMock) GetChannel(ctx context.Context, id string) (models.Channel, error) {
	args := m.Called(ctx, id)
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch, args.Error(1)
}

func (m *ChannelRepositoryMock) CreateChannel(ctx context.Context, name, description, createdBy string) (models.Channel, error) {
	args := m.Called(ctx, name, description, createdBy)
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch, args.Error(1)
}

func (m *ChannelRepositoryMock) DeleteChannel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, view models.View, viewerID string) ([]models.Message, error) {
	args := m.Called(ctx, view, viewerID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, id string) (models.Message, error) {
	args := m.Called(ctx, id)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, in models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, in)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) DeleteMessage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) UpsertReaction(ctx context.Context, messageID, userID, emoji string) (models.Reaction, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	var r models.Reaction
	if val := args.Get(0); val != nil {
		r = val.(models.Reaction)
	}
	return r, args.Error(1)
}

func (m *ReactionRepositoryMock) ListReactions(ctx context.Context, messageIDs []string) ([]models.Reaction, error) {
	args := m.Called(ctx, messageIDs)
	var list []models.Reaction
	if val := args.Get(0); val != nil {
		list = val.([]models.Reaction)
	}
	return list, args.Error(1)
}

type AnnouncementRepositoryMock struct {
	mock.Mock
}

func (m *AnnouncementRepositoryMock) ListActive(ctx context.Context, now time.Time) ([]models.Announcement, error) {
	args := m.Called(ctx, now)
	var list []models.Announcement
	if val := args.Get(0); val != nil {
		list = val.([]models.Announcement)
	}
	return list, args.Error(1)
}

func (m *AnnouncementRepositoryMock) CreateAnnouncement(ctx context.Context, content string, startsAt, endsAt time.Time, createdBy string) (models.Announcement, error) {
	args := m.Called(ctx, content, startsAt, endsAt, createdBy)
	var a models.Announcement
	if val := args.Get(0); val != nil {
		a = val.(models.Announcement)
	}
	return a, args.Error(1)
}

var (
	_ repositories.ProfileRepository      = (*ProfileRepositoryMock)(nil)
	_ repositories.ChannelRepository      = (*ChannelRepositoryMock)(nil)
	_ repositories.MessageRepository      = (*MessageRepositoryMock)(nil)
	_ repositories.ReactionRepository     = (*ReactionRepositoryMock)(nil)
	_ repositories.AnnouncementRepository = (*AnnouncementRepositoryMock)(nil)
)
