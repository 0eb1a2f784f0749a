// Package memstore is an in-process backend implementing every repository with the
// same constraints as the Postgres schema, publishing row changes to a broker.
package memstore

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"disclone/internal/models"
	"disclone/internal/realtime"
	"disclone/internal/repositories"
)

type profileRow struct {
	models.Profile
	passwordHash string
}

// Store holds all tables behind one mutex.
type Store struct {
	mu            sync.RWMutex
	profiles      map[string]profileRow
	channels      map[string]models.Channel
	messages      map[string]models.Message
	reactions     map[string]models.Reaction
	announcements map[string]models.Announcement

	broker *realtime.Broker
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store. broker may be nil.
func New(broker *realtime.Broker, opts ...Option) *Store {
	s := &Store{
		profiles:      map[string]profileRow{},
		channels:      map[string]models.Channel{},
		messages:      map[string]models.Message{},
		reactions:     map[string]models.Reaction{},
		announcements: map[string]models.Announcement{},
		broker:        broker,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ repositories.ProfileRepository      = (*Store)(nil)
	_ repositories.ChannelRepository      = (*Store)(nil)
	_ repositories.MessageRepository      = (*Store)(nil)
	_ repositories.ReactionRepository     = (*Store)(nil)
	_ repositories.AnnouncementRepository = (*Store)(nil)
)

func (s *Store) publish(table string, op realtime.Op, record, old any) {
	if s.broker == nil {
		return
	}
	evt, err := realtime.NewEvent(table, op, record, old)
	if err != nil {
		log.Printf("memstore event encode failed table=%s: %v", table, err)
		return
	}
	s.broker.Publish(evt)
}

func conflict(constraint string) error {
	return fmt.Errorf("%w: %s", repositories.ErrConflict, constraint)
}

// CreateProfile inserts a profile; usernames are unique case-insensitively.
func (s *Store) CreateProfile(ctx context.Context, username, passwordHash string, isAdmin bool) (models.Profile, error) {
	s.mu.Lock()
	for _, p := range s.profiles {
		if strings.EqualFold(p.Username, username) {
			s.mu.Unlock()
			return models.Profile{}, conflict("profiles_username_key")
		}
	}
	p := models.Profile{ID: uuid.NewString(), Username: username, IsAdmin: isAdmin, CreatedAt: s.now()}
	s.profiles[p.ID] = profileRow{Profile: p, passwordHash: passwordHash}
	s.mu.Unlock()

	s.publish(realtime.TableProfiles, realtime.OpInsert, p, nil)
	return p, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return models.Profile{}, repositories.ErrNotFound
	}
	return p.Profile, nil
}

func (s *Store) GetCredentials(ctx context.Context, username string) (models.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if strings.EqualFold(p.Username, username) {
			return models.Credentials{ProfileID: p.ID, PasswordHash: p.passwordHash}, nil
		}
	}
	return models.Credentials{}, repositories.ErrNotFound
}

func (s *Store) ListOtherProfiles(ctx context.Context, excludeID string, limit int) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Profile{}
	for _, p := range s.profiles {
		if p.ID != excludeID {
			out = append(out, p.Profile)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListChannels(ctx context.Context) ([]models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetChannel(ctx context.Context, id string) (models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	if !ok {
		return models.Channel{}, repositories.ErrNotFound
	}
	return ch, nil
}

func (s *Store) CreateChannel(ctx context.Context, name, description, createdBy string) (models.Channel, error) {
	s.mu.Lock()
	for _, ch := range s.channels {
		if ch.Name == name {
			s.mu.Unlock()
			return models.Channel{}, conflict("channels_name_key")
		}
	}
	if _, ok := s.profiles[createdBy]; !ok {
		s.mu.Unlock()
		return models.Channel{}, fmt.Errorf("channel creator %q does not exist", createdBy)
	}
	ch := models.Channel{ID: uuid.NewString(), Name: name, Description: models.Optional(description), CreatedBy: createdBy, CreatedAt: s.now()}
	s.channels[ch.ID] = ch
	s.mu.Unlock()

	s.publish(realtime.TableChannels, realtime.OpInsert, ch, nil)
	return ch, nil
}

// DeleteChannel removes the channel and cascades to its messages.
func (s *Store) DeleteChannel(ctx context.Context, id string) error {
	s.mu.Lock()
	ch, ok := s.channels[id]
	if !ok {
		s.mu.Unlock()
		return repositories.ErrNotFound
	}
	delete(s.channels, id)
	var removed []models.Message
	for mid, m := range s.messages {
		if m.ChannelID != nil && *m.ChannelID == id {
			removed = append(removed, m)
			s.deleteMessageLocked(mid)
		}
	}
	s.mu.Unlock()

	for _, m := range removed {
		s.publish(realtime.TableMessages, realtime.OpDelete, nil, m)
	}
	s.publish(realtime.TableChannels, realtime.OpDelete, nil, ch)
	return nil
}

// deleteMessageLocked removes a message, its reactions, and nulls references to it.
func (s *Store) deleteMessageLocked(id string) {
	delete(s.messages, id)
	for rid, r := range s.reactions {
		if r.MessageID == id {
			delete(s.reactions, rid)
		}
	}
	for mid, m := range s.messages {
		changed := false
		if m.ReplyToID != nil && *m.ReplyToID == id {
			m.ReplyToID = nil
			changed = true
		}
		if m.ForwardedFromID != nil && *m.ForwardedFromID == id {
			m.ForwardedFromID = nil
			changed = true
		}
		if changed {
			s.messages[mid] = m
		}
	}
}

func (s *Store) ListMessages(ctx context.Context, view models.View, viewerID string) ([]models.Message, error) {
	if err := view.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Message{}
	for _, m := range s.messages {
		if view.Includes(m, viewerID) {
			out = append(out, s.denormalizeLocked(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetMessage(ctx context.Context, id string) (models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return models.Message{}, repositories.ErrNotFound
	}
	return s.denormalizeLocked(m), nil
}

func (s *Store) denormalizeLocked(m models.Message) models.Message {
	if p, ok := s.profiles[m.AuthorID]; ok {
		author := p.Profile
		m.Author = &author
	}
	if m.ReplyToID != nil {
		if r, ok := s.messages[*m.ReplyToID]; ok {
			reply := r
			if p, ok := s.profiles[r.AuthorID]; ok {
				author := p.Profile
				reply.Author = &author
			}
			m.ReplyTo = &reply
		}
	}
	var reactions []models.Reaction
	for _, r := range s.reactions {
		if r.MessageID == m.ID {
			reactions = append(reactions, r)
		}
	}
	sort.Slice(reactions, func(i, j int) bool {
		if reactions[i].Emoji != reactions[j].Emoji {
			return reactions[i].Emoji < reactions[j].Emoji
		}
		return reactions[i].UserID < reactions[j].UserID
	})
	m.Reactions = models.GroupReactions(reactions)
	return m
}

func (s *Store) CreateMessage(ctx context.Context, in models.NewMessage) (models.Message, error) {
	if err := in.Validate(); err != nil {
		return models.Message{}, err
	}
	s.mu.Lock()
	if err := s.checkReferencesLocked(in); err != nil {
		s.mu.Unlock()
		return models.Message{}, err
	}
	msg := models.Message{
		ID:              uuid.NewString(),
		Content:         in.Content,
		AuthorID:        in.AuthorID,
		ChannelID:       models.Optional(in.ChannelID),
		RecipientID:     models.Optional(in.RecipientID),
		ReplyToID:       models.Optional(in.ReplyToID),
		ForwardedFromID: models.Optional(in.ForwardedFromID),
		IsGIF:           in.IsGIF,
		GIFURL:          models.Optional(in.GIFURL),
		CreatedAt:       s.now(),
	}
	s.messages[msg.ID] = msg
	s.mu.Unlock()

	s.publish(realtime.TableMessages, realtime.OpInsert, msg, nil)
	return msg, nil
}

// checkReferencesLocked mirrors the foreign keys of the messages table.
func (s *Store) checkReferencesLocked(in models.NewMessage) error {
	if _, ok := s.profiles[in.AuthorID]; !ok {
		return fmt.Errorf("%w: message author %q", repositories.ErrNotFound, in.AuthorID)
	}
	if _, ok := s.channels[in.ChannelID]; in.ChannelID != "" && !ok {
		return fmt.Errorf("%w: channel %q", repositories.ErrNotFound, in.ChannelID)
	}
	if _, ok := s.profiles[in.RecipientID]; in.RecipientID != "" && !ok {
		return fmt.Errorf("%w: recipient %q", repositories.ErrNotFound, in.RecipientID)
	}
	if _, ok := s.messages[in.ReplyToID]; in.ReplyToID != "" && !ok {
		return fmt.Errorf("%w: reply target %q", repositories.ErrNotFound, in.ReplyToID)
	}
	if _, ok := s.messages[in.ForwardedFromID]; in.ForwardedFromID != "" && !ok {
		return fmt.Errorf("%w: forwarded message %q", repositories.ErrNotFound, in.ForwardedFromID)
	}
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	s.mu.Lock()
	m, ok := s.messages[id]
	if !ok {
		s.mu.Unlock()
		return repositories.ErrNotFound
	}
	s.deleteMessageLocked(id)
	s.mu.Unlock()

	s.publish(realtime.TableMessages, realtime.OpDelete, nil, m)
	return nil
}

// UpsertReaction returns the existing row when the (message, user, emoji) triple is present.
func (s *Store) UpsertReaction(ctx context.Context, messageID, userID, emoji string) (models.Reaction, error) {
	s.mu.Lock()
	if _, ok := s.messages[messageID]; !ok {
		s.mu.Unlock()
		return models.Reaction{}, fmt.Errorf("message %q does not exist", messageID)
	}
	for _, r := range s.reactions {
		if r.MessageID == messageID && r.UserID == userID && r.Emoji == emoji {
			s.mu.Unlock()
			s.publish(realtime.TableReactions, realtime.OpUpdate, r, r)
			return r, nil
		}
	}
	r := models.Reaction{ID: uuid.NewString(), MessageID: messageID, UserID: userID, Emoji: emoji}
	s.reactions[r.ID] = r
	s.mu.Unlock()

	s.publish(realtime.TableReactions, realtime.OpInsert, r, nil)
	return r, nil
}

func (s *Store) ListReactions(ctx context.Context, messageIDs []string) ([]models.Reaction, error) {
	want := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Reaction{}
	for _, r := range s.reactions {
		if _, ok := want[r.MessageID]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MessageID != out[j].MessageID {
			return out[i].MessageID < out[j].MessageID
		}
		if out[i].Emoji != out[j].Emoji {
			return out[i].Emoji < out[j].Emoji
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (s *Store) ListActive(ctx context.Context, now time.Time) ([]models.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Announcement{}
	for _, a := range s.announcements {
		if a.ActiveAt(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *Store) CreateAnnouncement(ctx context.Context, content string, startsAt, endsAt time.Time, createdBy string) (models.Announcement, error) {
	if endsAt.Before(startsAt) {
		return models.Announcement{}, fmt.Errorf("announcement ends before it starts")
	}
	a := models.Announcement{ID: uuid.NewString(), Content: content, StartsAt: startsAt, EndsAt: endsAt, CreatedBy: createdBy}
	s.mu.Lock()
	a.CreatedAt = s.now()
	s.announcements[a.ID] = a
	s.mu.Unlock()

	s.publish(realtime.TableAnnouncements, realtime.OpInsert, a, nil)
	return a, nil
}
