package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/lib/pq"
)

// NotifyChannel is the Postgres channel the table triggers notify on.
const NotifyChannel = "realtime"

// PGListener turns Postgres notifications into broker events.
type PGListener struct {
	listener *pq.Listener
	broker   *Broker
}

// NewPGListener opens a LISTEN connection on NotifyChannel.
func NewPGListener(dsn string, broker *Broker) (*PGListener, error) {
	listener := pq.NewListener(dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			log.Printf("realtime listener disconnected: %v", err)
		case pq.ListenerEventReconnected:
			log.Printf("realtime listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			log.Printf("realtime listener connection attempt failed: %v", err)
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, err
	}
	return &PGListener{listener: listener, broker: broker}, nil
}

// Run pumps notifications into the broker until ctx is done.
func (l *PGListener) Run(ctx context.Context) {
	keepalive := time.NewTicker(90 * time.Second)
	defer keepalive.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.listener.Notify:
			// nil after a reconnect; events in the gap are lost.
			if n == nil {
				continue
			}
			evt, err := decodeNotification(n.Extra)
			if err != nil {
				log.Printf("realtime decode failed: %v", err)
				continue
			}
			l.broker.Publish(evt)
		case <-keepalive.C:
			if err := l.listener.Ping(); err != nil {
				log.Printf("realtime listener ping failed: %v", err)
			}
		}
	}
}

// Close releases the listener connection.
func (l *PGListener) Close() error {
	return l.listener.Close()
}

func decodeNotification(payload string) (Event, error) {
	var evt Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return Event{}, err
	}
	return evt, nil
}
