package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerDeliversByTable(t *testing.T) {
	broker := NewBroker(4)
	messages := broker.Subscribe(TableMessages)
	channels := broker.Subscribe(TableChannels)
	defer messages.Close()
	defer channels.Close()

	broker.Publish(Event{Table: TableMessages, Op: OpInsert})

	require.Len(t, messages.Events(), 1)
	assert.Len(t, channels.Events(), 0)
}

func TestBrokerDropsWhenBufferFull(t *testing.T) {
	broker := NewBroker(1)
	sub := broker.Subscribe(TableMessages)
	defer sub.Close()

	broker.Publish(Event{Table: TableMessages, Op: OpInsert})
	broker.Publish(Event{Table: TableMessages, Op: OpDelete})

	evt := <-sub.Events()
	assert.Equal(t, OpInsert, evt.Op)
	assert.Len(t, sub.Events(), 0)
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	broker := NewBroker(4)
	sub := broker.Subscribe(TableMessages)

	sub.Close()
	sub.Close()
	broker.Publish(Event{Table: TableMessages, Op: OpInsert})

	_, open := <-sub.Events()
	assert.False(t, open)
	assert.Equal(t, 0, broker.Subscribers(TableMessages))
}

func TestDecodeNotification(t *testing.T) {
	evt, err := decodeNotification(`{"table":"messages","op":"INSERT","record":{"id":"m1","content":"hello"},"old":null}`)
	require.NoError(t, err)
	assert.Equal(t, TableMessages, evt.Table)
	assert.Equal(t, OpInsert, evt.Op)

	var row struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	require.NoError(t, evt.DecodeRecord(&row))
	assert.Equal(t, "hello", row.Content)
	assert.Error(t, evt.DecodeOld(&row))
}

func TestNewEventRoundTripsRows(t *testing.T) {
	evt, err := NewEvent(TableChannels, OpDelete, nil, map[string]string{"id": "c1"})
	require.NoError(t, err)
	assert.Empty(t, evt.Record)

	var old map[string]string
	require.NoError(t, evt.DecodeOld(&old))
	assert.Equal(t, "c1", old["id"])
}
