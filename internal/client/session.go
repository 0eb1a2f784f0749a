// Package client holds the per-connection view model: the open conversation,
// its live message feed, the composer, the channel roster and the announcement ticker.
//
// A Session owns its State on a single loop goroutine. Backend calls run off the loop
// and post their results back tagged with the view generation that issued them;
// results and realtime events for a superseded generation are discarded.
package client

import (
	"context"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"disclone/internal/models"
	"disclone/internal/observability"
	"disclone/internal/realtime"
	"disclone/internal/repositories"
	"disclone/internal/telemetry"
)

const inboxSize = 64

var tracer = otel.Tracer("disclone/client")

// Deps are the collaborators a Session reads from and writes to.
type Deps struct {
	Profiles      repositories.ProfileRepository
	Channels      repositories.ChannelRepository
	Messages      repositories.MessageRepository
	Reactions     repositories.ReactionRepository
	Announcements repositories.AnnouncementRepository
	Feed          realtime.Feed
	Audit         *telemetry.AuditEmitter
}

// Config tunes a Session.
type Config struct {
	AnnouncementInterval time.Duration
	DirectMessageLimit   int
	Now                  func() time.Time
}

func (c Config) withDefaults() Config {
	if c.AnnouncementInterval <= 0 {
		c.AnnouncementInterval = time.Minute
	}
	if c.DirectMessageLimit <= 0 {
		c.DirectMessageLimit = 20
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type Session struct {
	deps Deps
	cfg  Config

	inbox   chan any
	updates chan State
	done    chan struct{}

	state      State
	generation uint64
	subs       []*realtime.Subscription

	// Reads that may overlap are numbered when issued; only results newer than
	// the last one applied are installed.
	rosterSeq, rosterApplied     uint64
	announceSeq, announceApplied uint64
}

// NewSession builds a session for an authenticated profile. Call Run to start it.
func NewSession(profile models.Profile, deps Deps, cfg Config) *Session {
	return &Session{
		deps:    deps,
		cfg:     cfg.withDefaults(),
		inbox:   make(chan any, inboxSize),
		updates: make(chan State, 1),
		done:    make(chan struct{}),
		state: State{
			Profile:       profile,
			Channels:      []models.Channel{},
			Candidates:    []models.Profile{},
			Announcements: []models.Announcement{},
		},
	}
}

// Do queues a command. It reports false once the session has stopped.
func (s *Session) Do(cmd Command) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- cmd:
		return true
	case <-s.done:
		return false
	}
}

// Updates delivers state snapshots. Only the latest unread snapshot is kept.
// The channel is closed when Run returns.
func (s *Session) Updates() <-chan State {
	return s.updates
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run drives the session until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := s.start(ctx)
	ticker := time.NewTicker(s.cfg.AnnouncementInterval)
	defer func() {
		ticker.Stop()
		stop()
		close(s.done)
		close(s.updates)
	}()
	s.publish()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshAnnouncements(ctx)
		case msg := <-s.inbox:
			s.handle(ctx, msg)
			s.publish()
		}
	}
}

// start subscribes to the roster and issues the initial reads.
// The returned func releases every subscription.
func (s *Session) start(ctx context.Context) func() {
	roster := s.deps.Feed.Subscribe(realtime.TableChannels)
	go s.relay(roster, 0)
	s.loadChannels(ctx)
	s.loadCandidates(ctx)
	s.refreshAnnouncements(ctx)
	return func() {
		roster.Close()
		s.closeFeed()
	}
}

// Loop messages posted by relays and backend calls.
type (
	realtimeEvent struct {
		gen uint64
		evt realtime.Event
	}
	feedLoaded struct {
		gen  uint64
		msgs []models.Message
		err  error
	}
	messageResolved struct {
		gen uint64
		msg models.Message
	}
	reactionsLoaded struct {
		gen       uint64
		messageID string
		groups    []models.ReactionGroup
	}
	channelsLoaded struct {
		seq      uint64
		channels []models.Channel
		err      error
	}
	candidatesLoaded struct {
		profiles []models.Profile
		err      error
	}
	announcementsLoaded struct {
		seq  uint64
		list []models.Announcement
		err  error
	}
	sendCompleted struct {
		gen  uint64
		text string
		msg  models.Message
		err  error
	}
	writeCompleted struct {
		action string
		err    error
	}
)

func (s *Session) handle(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case Command:
		s.apply(ctx, m)
	case realtimeEvent:
		if m.evt.Table == realtime.TableChannels {
			s.loadChannels(ctx)
			return
		}
		s.onFeedEvent(ctx, m)
	case feedLoaded:
		if m.gen != s.state.Feed.Generation {
			return
		}
		msgs := m.msgs
		if m.err != nil {
			log.Printf("client: load messages for %s %s: %v", s.state.View.Kind, s.state.View.ID, m.err)
			observability.IncReadFailure("messages")
			msgs = nil
		}
		s.state.Feed = s.state.Feed.Loaded(m.gen, msgs)
	case messageResolved:
		if view := s.state.View; view == nil || !view.Includes(m.msg, s.state.Profile.ID) {
			return
		}
		s.state.Feed = s.state.Feed.Insert(m.gen, m.msg)
	case reactionsLoaded:
		s.state.Feed = s.state.Feed.SetReactions(m.gen, m.messageID, m.groups)
	case channelsLoaded:
		s.onChannels(ctx, m)
	case candidatesLoaded:
		if m.err != nil {
			log.Printf("client: load direct-message candidates: %v", m.err)
			observability.IncReadFailure("profiles")
			s.state.Candidates = []models.Profile{}
			return
		}
		s.state.Candidates = m.profiles
	case announcementsLoaded:
		if m.seq <= s.announceApplied {
			return
		}
		s.announceApplied = m.seq
		if m.err != nil {
			log.Printf("client: load announcements: %v", m.err)
			observability.IncReadFailure("announcements")
			s.state.Announcements = []models.Announcement{}
			return
		}
		s.state.Announcements = m.list
	case sendCompleted:
		s.onSendCompleted(ctx, m)
	case writeCompleted:
		if m.err != nil {
			log.Printf("client: %s failed for %s: %v", m.action, s.state.Profile.ID, m.err)
			s.state.Notice = noticeFor(m.err)
		}
	}
}

func (s *Session) apply(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case SelectView:
		if err := c.View.Validate(); err != nil {
			log.Printf("client: ignoring view %+v: %v", c.View, err)
			return
		}
		v := c.View
		s.switchView(ctx, &v)
	case ClearView:
		s.switchView(ctx, nil)
	case SetDraft:
		s.state.Draft = c.Text
	case SetReply:
		s.setReply(c.MessageID)
	case Send:
		s.send(ctx, c.Text)
	case Forward:
		s.forward(ctx, c)
	case React:
		s.react(ctx, c)
	case DeleteMessage:
		s.deleteMessage(ctx, c.MessageID)
	case CreateChannel:
		s.createChannel(ctx, c)
	case DeleteChannel:
		s.deleteChannel(ctx, c)
	case DismissAnnouncement:
		s.state.Announcements = withoutAnnouncement(s.state.Announcements, c.ID)
	case DismissNotice:
		s.state.Notice = nil
	}
}

// switchView replaces the open conversation in one step: new generation, empty
// composer, fresh realtime subscriptions, then the initial fetch.
func (s *Session) switchView(ctx context.Context, v *models.View) {
	s.closeFeed()
	s.generation++
	gen := s.generation

	s.state.View = v
	s.state.ReplyTo = nil
	s.state.Draft = ""
	if v == nil {
		s.state.Feed = Feed{Generation: gen}
		return
	}
	s.state.Feed = loadingFeed(gen)

	for _, table := range []string{realtime.TableMessages, realtime.TableReactions} {
		sub := s.deps.Feed.Subscribe(table)
		s.subs = append(s.subs, sub)
		go s.relay(sub, gen)
	}

	view, viewer := *v, s.state.Profile.ID
	s.spawn(ctx, "messages.list", func(ctx context.Context) any {
		msgs, err := s.deps.Messages.ListMessages(ctx, view, viewer)
		return feedLoaded{gen: gen, msgs: msgs, err: err}
	})
}

func (s *Session) closeFeed() {
	for _, sub := range s.subs {
		sub.Close()
	}
	s.subs = nil
}

func (s *Session) onFeedEvent(ctx context.Context, m realtimeEvent) {
	if m.gen != s.state.Feed.Generation || s.state.View == nil {
		observability.IncRealtimeEvent(m.evt.Table, "stale")
		return
	}
	switch m.evt.Table {
	case realtime.TableMessages:
		s.onMessageEvent(ctx, m.gen, m.evt)
	case realtime.TableReactions:
		s.onReactionEvent(ctx, m.gen, m.evt)
	}
}

func (s *Session) onMessageEvent(ctx context.Context, gen uint64, evt realtime.Event) {
	if evt.Op == realtime.OpDelete {
		var old models.Message
		if err := evt.DecodeOld(&old); err != nil {
			log.Printf("client: decode deleted message: %v", err)
			return
		}
		s.state.Feed = s.state.Feed.Remove(gen, old.ID)
		if s.state.ReplyTo != nil && s.state.ReplyTo.ID == old.ID {
			s.state.ReplyTo = nil
		}
		return
	}

	var row models.Message
	if err := evt.DecodeRecord(&row); err != nil {
		log.Printf("client: decode message event: %v", err)
		return
	}
	if !s.state.View.Includes(row, s.state.Profile.ID) {
		return
	}
	if _, shown := s.state.Feed.Find(row.ID); evt.Op == realtime.OpUpdate && !shown {
		return
	}
	s.spawn(ctx, "messages.resolve", func(ctx context.Context) any {
		return messageResolved{gen: gen, msg: s.resolve(ctx, row)}
	})
}

// resolve fetches the denormalized form of a raw row, falling back to the row with
// just its author attached.
func (s *Session) resolve(ctx context.Context, row models.Message) models.Message {
	full, err := s.deps.Messages.GetMessage(ctx, row.ID)
	if err == nil {
		return full
	}
	log.Printf("client: resolve message %s: %v", row.ID, err)
	if author, err := s.deps.Profiles.GetProfile(ctx, row.AuthorID); err == nil {
		row.Author = &author
	}
	return row
}

func (s *Session) onReactionEvent(ctx context.Context, gen uint64, evt realtime.Event) {
	var r models.Reaction
	decode := evt.DecodeRecord
	if evt.Op == realtime.OpDelete {
		decode = evt.DecodeOld
	}
	if err := decode(&r); err != nil {
		log.Printf("client: decode reaction event: %v", err)
		return
	}
	// During the initial load the message may be in the list still being fetched.
	if _, shown := s.state.Feed.Find(r.MessageID); !shown && !s.state.Feed.Loading {
		return
	}
	messageID := r.MessageID
	s.spawn(ctx, "reactions.list", func(ctx context.Context) any {
		list, err := s.deps.Reactions.ListReactions(ctx, []string{messageID})
		if err != nil {
			log.Printf("client: reload reactions for %s: %v", messageID, err)
			return nil
		}
		return reactionsLoaded{gen: gen, messageID: messageID, groups: models.GroupReactions(list)}
	})
}

func (s *Session) setReply(id string) {
	if id == "" {
		s.state.ReplyTo = nil
		return
	}
	msg, ok := s.state.Feed.Find(id)
	if !ok {
		return
	}
	s.state.ReplyTo = &msg
}

func (s *Session) send(ctx context.Context, text string) {
	if text == "" {
		text = s.state.Draft
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	if s.state.View == nil {
		s.state.Notice = noticeFor(ErrNoView)
		return
	}
	in := s.state.View.Target(models.NewMessage{Content: text, AuthorID: s.state.Profile.ID})
	if s.state.ReplyTo != nil {
		in.ReplyToID = s.state.ReplyTo.ID
	}
	if err := in.Validate(); err != nil {
		s.state.Notice = noticeFor(err)
		return
	}

	s.state.Draft = ""
	gen := s.state.Feed.Generation
	s.spawn(ctx, "messages.create", func(ctx context.Context) any {
		msg, err := s.deps.Messages.CreateMessage(ctx, in)
		return sendCompleted{gen: gen, text: text, msg: msg, err: err}
	})
}

func (s *Session) onSendCompleted(ctx context.Context, m sendCompleted) {
	if m.err != nil {
		observability.IncMessageSend("error")
		log.Printf("client: send failed for %s: %v", s.state.Profile.ID, m.err)
		s.state.Notice = noticeFor(m.err)
		if m.gen == s.state.Feed.Generation {
			s.state.Draft = m.text
		}
		return
	}
	observability.IncMessageSend("ok")
	s.deps.Audit.Emit(ctx, telemetry.ActionMessageSent, s.state.Profile.ID, map[string]any{
		"message_id":   m.msg.ID,
		"channel_id":   models.Value(m.msg.ChannelID),
		"recipient_id": models.Value(m.msg.RecipientID),
	})
	if m.gen == s.state.Feed.Generation {
		s.state.ReplyTo = nil
	}
}

func (s *Session) forward(ctx context.Context, c Forward) {
	target := strings.TrimSpace(c.ChannelID)
	if target == "" {
		return
	}
	original, ok := s.state.Feed.Find(c.MessageID)
	if !ok {
		return
	}
	in := models.NewMessage{
		Content:         original.Content,
		AuthorID:        s.state.Profile.ID,
		ChannelID:       target,
		ForwardedFromID: original.ID,
		IsGIF:           original.IsGIF,
		GIFURL:          models.Value(original.GIFURL),
	}
	actor := s.state.Profile.ID
	s.spawn(ctx, "messages.forward", func(ctx context.Context) any {
		msg, err := s.deps.Messages.CreateMessage(ctx, in)
		if err == nil {
			s.deps.Audit.Emit(ctx, telemetry.ActionMessageForwarded, actor, map[string]any{
				"message_id":        msg.ID,
				"forwarded_from_id": original.ID,
				"channel_id":        target,
			})
		}
		return writeCompleted{action: "forward", err: err}
	})
}

func (s *Session) react(ctx context.Context, c React) {
	emoji := strings.TrimSpace(c.Emoji)
	if emoji == "" {
		return
	}
	if _, ok := s.state.Feed.Find(c.MessageID); !ok {
		return
	}
	user, messageID := s.state.Profile.ID, c.MessageID
	s.spawn(ctx, "reactions.upsert", func(ctx context.Context) any {
		_, err := s.deps.Reactions.UpsertReaction(ctx, messageID, user, emoji)
		return writeCompleted{action: "react", err: err}
	})
}

func (s *Session) deleteMessage(ctx context.Context, id string) {
	msg, ok := s.state.Feed.Find(id)
	if !ok {
		return
	}
	if msg.AuthorID != s.state.Profile.ID && !s.state.Profile.IsAdmin {
		s.state.Notice = noticeFor(ErrForbidden)
		return
	}
	actor := s.state.Profile.ID
	s.spawn(ctx, "messages.delete", func(ctx context.Context) any {
		err := s.deps.Messages.DeleteMessage(ctx, id)
		if err == nil {
			s.deps.Audit.Emit(ctx, telemetry.ActionMessageDeleted, actor, map[string]any{"message_id": id})
		}
		return writeCompleted{action: "delete message", err: err}
	})
}

func (s *Session) createChannel(ctx context.Context, c CreateChannel) {
	if !s.state.Profile.IsAdmin {
		s.state.Notice = noticeFor(ErrForbidden)
		return
	}
	name := models.ChannelSlug(c.Name)
	if name == "" {
		return
	}
	description, actor := strings.TrimSpace(c.Description), s.state.Profile.ID
	s.spawn(ctx, "channels.create", func(ctx context.Context) any {
		ch, err := s.deps.Channels.CreateChannel(ctx, name, description, actor)
		if err == nil {
			s.deps.Audit.Emit(ctx, telemetry.ActionChannelCreated, actor, map[string]any{"channel_id": ch.ID, "name": ch.Name})
		}
		return writeCompleted{action: "create channel", err: err}
	})
}

func (s *Session) deleteChannel(ctx context.Context, c DeleteChannel) {
	if !s.state.Profile.IsAdmin {
		s.state.Notice = noticeFor(ErrForbidden)
		return
	}
	if !c.Confirmed || c.ChannelID == "" {
		return
	}
	id, actor := c.ChannelID, s.state.Profile.ID
	s.spawn(ctx, "channels.delete", func(ctx context.Context) any {
		err := s.deps.Channels.DeleteChannel(ctx, id)
		if err == nil {
			s.deps.Audit.Emit(ctx, telemetry.ActionChannelDeleted, actor, map[string]any{"channel_id": id})
		}
		return writeCompleted{action: "delete channel", err: err}
	})
}

func (s *Session) loadChannels(ctx context.Context) {
	s.rosterSeq++
	seq := s.rosterSeq
	s.spawn(ctx, "channels.list", func(ctx context.Context) any {
		list, err := s.deps.Channels.ListChannels(ctx)
		return channelsLoaded{seq: seq, channels: list, err: err}
	})
}

func (s *Session) onChannels(ctx context.Context, m channelsLoaded) {
	if m.seq <= s.rosterApplied {
		return
	}
	s.rosterApplied = m.seq
	if m.err != nil {
		log.Printf("client: load channels: %v", m.err)
		observability.IncReadFailure("channels")
		s.state.Channels = []models.Channel{}
		return
	}
	s.state.Channels = m.channels
	if v := s.state.View; v != nil && v.Kind == models.ViewChannel && !s.state.hasChannel(v.ID) {
		s.switchView(ctx, nil)
	}
}

func (s *Session) loadCandidates(ctx context.Context) {
	viewer, limit := s.state.Profile.ID, s.cfg.DirectMessageLimit
	s.spawn(ctx, "profiles.list", func(ctx context.Context) any {
		list, err := s.deps.Profiles.ListOtherProfiles(ctx, viewer, limit)
		return candidatesLoaded{profiles: list, err: err}
	})
}

func (s *Session) refreshAnnouncements(ctx context.Context) {
	now := s.cfg.Now()
	s.announceSeq++
	seq := s.announceSeq
	s.spawn(ctx, "announcements.active", func(ctx context.Context) any {
		list, err := s.deps.Announcements.ListActive(ctx, now)
		return announcementsLoaded{seq: seq, list: list, err: err}
	})
}

// spawn runs fn off the loop under a span and posts its result.
func (s *Session) spawn(ctx context.Context, op string, fn func(context.Context) any) {
	profileID := s.state.Profile.ID
	go func() {
		ctx, span := tracer.Start(ctx, "client."+op)
		span.SetAttributes(attribute.String("profile.id", profileID))
		start := time.Now()
		result := fn(ctx)
		outcome := "ok"
		if res, ok := result.(interface{ failed() error }); ok && res.failed() != nil {
			outcome = "error"
			span.SetStatus(codes.Error, res.failed().Error())
		}
		span.End()
		observability.ObserveBackendCall(op, outcome, time.Since(start))
		if result != nil {
			s.post(result)
		}
	}()
}

// relay forwards a subscription's events to the loop tagged with gen.
func (s *Session) relay(sub *realtime.Subscription, gen uint64) {
	for evt := range sub.Events() {
		if !s.post(realtimeEvent{gen: gen, evt: evt}) {
			return
		}
	}
}

func (s *Session) post(msg any) bool {
	select {
	case s.inbox <- msg:
		return true
	case <-s.done:
		return false
	}
}

// publish offers the current state, replacing any snapshot the reader has not taken.
func (s *Session) publish() {
	snap := s.state
	select {
	case s.updates <- snap:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	s.updates <- snap
}

func (m feedLoaded) failed() error          { return m.err }
func (m channelsLoaded) failed() error      { return m.err }
func (m candidatesLoaded) failed() error    { return m.err }
func (m announcementsLoaded) failed() error { return m.err }
func (m sendCompleted) failed() error       { return m.err }
func (m writeCompleted) failed() error      { return m.err }
