package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclone/internal/client"
	"disclone/internal/models"
)

func TestDecodeCommand(t *testing.T) {
	cases := []struct {
		frame string
		want  client.Command
	}{
		{`{"type":"select_view","view":{"type":"dm","id":"peer"}}`, client.SelectView{View: models.View{Kind: models.ViewDirect, ID: "peer"}}},
		{`{"type":"clear_view"}`, client.ClearView{}},
		{`{"type":"set_draft","text":"hel"}`, client.SetDraft{Text: "hel"}},
		{`{"type":"set_reply","message_id":"m1"}`, client.SetReply{MessageID: "m1"}},
		{`{"type":"send","text":"hello"}`, client.Send{Text: "hello"}},
		{`{"type":"forward","message_id":"m1","channel_id":"c2"}`, client.Forward{MessageID: "m1", ChannelID: "c2"}},
		{`{"type":"react","message_id":"m1","emoji":"👍"}`, client.React{MessageID: "m1", Emoji: "👍"}},
		{`{"type":"delete_message","message_id":"m1"}`, client.DeleteMessage{MessageID: "m1"}},
		{`{"type":"create_channel","name":"General","description":"all"}`, client.CreateChannel{Name: "General", Description: "all"}},
		{`{"type":"delete_channel","channel_id":"c1","confirmed":true}`, client.DeleteChannel{ChannelID: "c1", Confirmed: true}},
		{`{"type":"dismiss_announcement","id":"a1"}`, client.DismissAnnouncement{ID: "a1"}},
		{`{"type":"dismiss_notice"}`, client.DismissNotice{}},
	}
	for _, tc := range cases {
		got, err := DecodeCommand([]byte(tc.frame))
		require.NoError(t, err, tc.frame)
		assert.Equal(t, tc.want, got, tc.frame)
	}
}

func TestDecodeCommandRejectsBadFrames(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":"explode"}`))
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = DecodeCommand([]byte(`{"type":"select_view"}`))
	assert.ErrorIs(t, err, models.ErrInvalidView)

	_, err = DecodeCommand([]byte(`not json`))
	assert.Error(t, err)
}
