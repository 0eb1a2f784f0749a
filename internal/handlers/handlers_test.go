package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"disclone/internal/middleware"
	"disclone/internal/mocks"
	"disclone/internal/models"
	"disclone/internal/repositories"
	"disclone/internal/telemetry"
)

var (
	member = models.Profile{ID: "u1", Username: "regular-user"}
	admin  = models.Profile{ID: "a1", Username: "admin", IsAdmin: true}
)

func newRouter(profile models.Profile) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetProfile(c, profile)
		c.Next()
	})
	return r
}

func do(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestListChannelsSuccess(t *testing.T) {
	repo := new(mocks.ChannelRepositoryMock)
	r := newRouter(member)
	r.GET("/channels", NewChannelHandler(repo, nil).ListChannels)

	repo.On("ListChannels", mock.Anything).Return([]models.Channel{{ID: "c1", Name: "general"}}, nil).Once()

	rec := do(r, http.MethodGet, "/channels", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["channels"], 1)
	repo.AssertExpectations(t)
}

func TestListChannelsRepoError(t *testing.T) {
	repo := new(mocks.ChannelRepositoryMock)
	r := newRouter(member)
	r.GET("/channels", NewChannelHandler(repo, nil).ListChannels)

	repo.On("ListChannels", mock.Anything).Return(([]models.Channel)(nil), assert.AnError).Once()

	rec := do(r, http.MethodGet, "/channels", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	repo.AssertExpectations(t)
}

func TestCreateChannelSlugsNameAndAudits(t *testing.T) {
	repo := new(mocks.ChannelRepositoryMock)
	pub := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(pub, "audit", "disclone", "test")
	r := newRouter(admin)
	r.POST("/channels", NewChannelHandler(repo, audit).CreateChannel)

	repo.On("CreateChannel", mock.Anything, "general-chat", "for everyone", admin.ID).
		Return(models.Channel{ID: "c1", Name: "general-chat"}, nil).Once()
	pub.On("Publish", mock.Anything, "audit.channel_created", mock.Anything, mock.Anything).Return(nil).Once()

	rec := do(r, http.MethodPost, "/channels", `{"name":"  General   Chat ","description":"for everyone"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreateChannelConflict(t *testing.T) {
	repo := new(mocks.ChannelRepositoryMock)
	r := newRouter(admin)
	r.POST("/channels", NewChannelHandler(repo, nil).CreateChannel)

	repo.On("CreateChannel", mock.Anything, "general", "", admin.ID).Return(nil, repositories.ErrConflict).Once()

	rec := do(r, http.MethodPost, "/channels", `{"name":"general"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteChannelRequiresConfirmation(t *testing.T) {
	repo := new(mocks.ChannelRepositoryMock)
	r := newRouter(admin)
	r.DELETE("/channels/:id", NewChannelHandler(repo, nil).DeleteChannel)

	rec := do(r, http.MethodDelete, "/channels/c1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "DeleteChannel", mock.Anything, mock.Anything)

	repo.On("DeleteChannel", mock.Anything, "c1").Return(nil).Once()
	rec = do(r, http.MethodDelete, "/channels/c1?confirm=true", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	repo.AssertExpectations(t)
}

func TestGetChannelAndDirectMessages(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	r := newRouter(member)
	h := NewMessageHandler(repo, nil, nil)
	r.GET("/channels/:id/messages", h.GetChannelMessages)
	r.GET("/dms/:peer_id/messages", h.GetDirectMessages)

	repo.On("ListMessages", mock.Anything, models.View{Kind: models.ViewChannel, ID: "c1"}, member.ID).
		Return([]models.Message{{ID: "m1", Content: "hello"}}, nil).Once()
	repo.On("ListMessages", mock.Anything, models.View{Kind: models.ViewDirect, ID: "peer"}, member.ID).
		Return(nil, nil).Once()

	rec := do(r, http.MethodGet, "/channels/c1/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["messages"], 1)

	rec = do(r, http.MethodGet, "/dms/peer/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["messages"])
	repo.AssertExpectations(t)
}

func TestPostMessageRejectsInvalidTarget(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	r := newRouter(member)
	r.POST("/messages", NewMessageHandler(repo, nil, nil).PostMessage)

	for _, body := range []string{
		`{"content":"hi","channel_id":"c1","recipient_id":"peer"}`,
		`{"content":"hi"}`,
		`{"content":"   ","channel_id":"c1"}`,
		`{"content":"` + strings.Repeat("x", models.MaxContentLength+1) + `","channel_id":"c1"}`,
	} {
		rec := do(r, http.MethodPost, "/messages", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	repo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestPostMessageSuccess(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	r := newRouter(member)
	r.POST("/messages", NewMessageHandler(repo, nil, nil).PostMessage)

	want := models.NewMessage{Content: "hi back", AuthorID: member.ID, ChannelID: "c1", ReplyToID: "m1"}
	repo.On("CreateMessage", mock.Anything, want).Return(models.Message{ID: "m2", Content: "hi back"}, nil).Once()

	rec := do(r, http.MethodPost, "/messages", `{"content":"hi back","channel_id":"c1","reply_to_id":"m1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestPostMessageConnectivityFailure(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	r := newRouter(member)
	r.POST("/messages", NewMessageHandler(repo, nil, nil).PostMessage)

	repo.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, &timeoutError{}).Once()

	rec := do(r, http.MethodPost, "/messages", `{"content":"hi","channel_id":"c1"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPostMessageMissingReplyTargetIsNotFound(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	r := newRouter(member)
	r.POST("/messages", NewMessageHandler(repo, nil, nil).PostMessage)

	repo.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: messages_reply_to_id_fkey", repositories.ErrNotFound)).Once()

	rec := do(r, http.MethodPost, "/messages", `{"content":"hi","channel_id":"c1","reply_to_id":"gone"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugRoutesAreOffUnlessEnabled(t *testing.T) {
	pub := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(pub, "audit", "disclone", "test")

	off := newRouter(member)
	RegisterDebugRoutes(off, audit, false)
	assert.Equal(t, http.StatusNotFound, do(off, http.MethodGet, "/debug/audit-test", "").Code)

	pub.On("Publish", mock.Anything, "audit.audit_test", mock.Anything, mock.Anything).Return(nil).Once()
	on := newRouter(member)
	RegisterDebugRoutes(on, audit, true)
	assert.Equal(t, http.StatusOK, do(on, http.MethodGet, "/debug/audit-test", "").Code)
	pub.AssertExpectations(t)
}

type timeoutError struct{}

func (*timeoutError) Error() string   { return "i/o timeout" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }

func TestForwardMessage(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	r := newRouter(member)
	r.POST("/messages/:id/forward", NewMessageHandler(repo, nil, nil).ForwardMessage)

	rec := do(r, http.MethodPost, "/messages/m1/forward", `{"channel_id":"  "}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	repo.AssertNotCalled(t, "GetMessage", mock.Anything, mock.Anything)

	repo.On("GetMessage", mock.Anything, "m1").Return(models.Message{ID: "m1", Content: "look", AuthorID: "a1"}, nil).Once()
	repo.On("CreateMessage", mock.Anything, models.NewMessage{
		Content: "look", AuthorID: member.ID, ChannelID: "c2", ForwardedFromID: "m1",
	}).Return(models.Message{ID: "m2"}, nil).Once()

	rec = do(r, http.MethodPost, "/messages/m1/forward", `{"channel_id":"c2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestDeleteMessagePermissions(t *testing.T) {
	cases := []struct {
		name    string
		profile models.Profile
		author  string
		want    int
	}{
		{"author", member, member.ID, http.StatusNoContent},
		{"admin", admin, member.ID, http.StatusNoContent},
		{"stranger", member, admin.ID, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mocks.MessageRepositoryMock)
			r := newRouter(tc.profile)
			r.DELETE("/messages/:id", NewMessageHandler(repo, nil, nil).DeleteMessage)

			repo.On("GetMessage", mock.Anything, "m1").Return(models.Message{ID: "m1", AuthorID: tc.author}, nil).Once()
			if tc.want == http.StatusNoContent {
				repo.On("DeleteMessage", mock.Anything, "m1").Return(nil).Once()
			}

			rec := do(r, http.MethodDelete, "/messages/m1", "")
			assert.Equal(t, tc.want, rec.Code)
			repo.AssertExpectations(t)
		})
	}
}

func TestDeleteMessageNotFound(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	r := newRouter(member)
	r.DELETE("/messages/:id", NewMessageHandler(repo, nil, nil).DeleteMessage)

	repo.On("GetMessage", mock.Anything, "missing").Return(nil, repositories.ErrNotFound).Once()

	rec := do(r, http.MethodDelete, "/messages/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReactReturnsGroupedReactions(t *testing.T) {
	reactions := new(mocks.ReactionRepositoryMock)
	r := newRouter(member)
	r.PUT("/messages/:id/reactions", NewMessageHandler(nil, reactions, nil).React)

	row := models.Reaction{ID: "r1", MessageID: "m1", UserID: member.ID, Emoji: "👍"}
	reactions.On("UpsertReaction", mock.Anything, "m1", member.ID, "👍").Return(row, nil).Once()
	reactions.On("ListReactions", mock.Anything, []string{"m1"}).Return([]models.Reaction{row}, nil).Once()

	rec := do(r, http.MethodPut, "/messages/m1/reactions", `{"emoji":"👍"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	groups := decode(t, rec)["reactions"].([]any)
	require.Len(t, groups, 1)
	assert.Equal(t, float64(1), groups[0].(map[string]any)["count"])
	reactions.AssertExpectations(t)
}

func TestListProfiles(t *testing.T) {
	repo := new(mocks.ProfileRepositoryMock)
	r := newRouter(member)
	r.GET("/profiles", NewProfileHandler(repo, 20).ListProfiles)

	repo.On("ListOtherProfiles", mock.Anything, member.ID, 20).Return([]models.Profile{admin}, nil).Once()

	rec := do(r, http.MethodGet, "/profiles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["profiles"], 1)
	repo.AssertExpectations(t)
}

func TestListActiveAnnouncementsUsesClock(t *testing.T) {
	repo := new(mocks.AnnouncementRepositoryMock)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := newRouter(member)
	r.GET("/announcements/active", NewAnnouncementHandler(repo, nil, func() time.Time { return now }).ListActive)

	repo.On("ListActive", mock.Anything, now).Return([]models.Announcement{{ID: "a1", Content: "tonight"}}, nil).Once()

	rec := do(r, http.MethodGet, "/announcements/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestCreateAnnouncementValidatesWindow(t *testing.T) {
	repo := new(mocks.AnnouncementRepositoryMock)
	r := newRouter(admin)
	r.POST("/announcements", NewAnnouncementHandler(repo, nil, nil).CreateAnnouncement)

	rec := do(r, http.MethodPost, "/announcements",
		`{"content":"x","starts_at":"2024-05-02T00:00:00Z","ends_at":"2024-05-01T00:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	starts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ends := starts.Add(24 * time.Hour)
	repo.On("CreateAnnouncement", mock.Anything, "maintenance", starts, ends, admin.ID).
		Return(models.Announcement{ID: "a1"}, nil).Once()
	rec = do(r, http.MethodPost, "/announcements",
		`{"content":"maintenance","starts_at":"2024-05-01T00:00:00Z","ends_at":"2024-05-02T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}
