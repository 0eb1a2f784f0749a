package realtime

import (
	"encoding/json"
	"errors"
)

// Op is the kind of row change carried by an Event.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Table names published on the change feed.
const (
	TableProfiles      = "profiles"
	TableChannels      = "channels"
	TableMessages      = "messages"
	TableReactions     = "reactions"
	TableAnnouncements = "announcements"
)

var errNoRecord = errors.New("event carries no record")

// Event is one row change. Record holds the new row, Old the previous one (update and delete).
type Event struct {
	Table  string          `json:"table"`
	Op     Op              `json:"op"`
	Record json.RawMessage `json:"record,omitempty"`
	Old    json.RawMessage `json:"old,omitempty"`
}

// NewEvent marshals the rows into an Event. Either row may be nil.
func NewEvent(table string, op Op, record, old any) (Event, error) {
	evt := Event{Table: table, Op: op}
	if record != nil {
		raw, err := json.Marshal(record)
		if err != nil {
			return Event{}, err
		}
		evt.Record = raw
	}
	if old != nil {
		raw, err := json.Marshal(old)
		if err != nil {
			return Event{}, err
		}
		evt.Old = raw
	}
	return evt, nil
}

// DecodeRecord unmarshals the new row into v.
func (e Event) DecodeRecord(v any) error {
	if len(e.Record) == 0 || string(e.Record) == "null" {
		return errNoRecord
	}
	return json.Unmarshal(e.Record, v)
}

// DecodeOld unmarshals the previous row into v.
func (e Event) DecodeOld(v any) error {
	if len(e.Old) == 0 || string(e.Old) == "null" {
		return errNoRecord
	}
	return json.Unmarshal(e.Old, v)
}
