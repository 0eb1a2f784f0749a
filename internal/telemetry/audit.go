package telemetry

import (
	"context"
	"log"
	"time"

	"disclone/internal/observability"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
	Close() error
}

// Audit actions.
const (
	ActionUserSignedUp        = "user_signed_up"
	ActionUserLoggedIn        = "user_logged_in"
	ActionMessageSent         = "message_sent"
	ActionMessageForwarded    = "message_forwarded"
	ActionMessageDeleted      = "message_deleted"
	ActionChannelCreated      = "channel_created"
	ActionChannelDeleted      = "channel_deleted"
	ActionAnnouncementCreated = "announcement_created"
	ActionSessionOpened       = "session_opened"
	ActionSessionClosed       = "session_closed"
)

type AuditEmitter struct {
	publisher     Publisher
	routingPrefix string
	service       string
	environment   string
}

type AuditEnvelope struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	Action        string         `json:"action"`
	OccurredAt    string         `json:"occurred_at"`
	Service       string         `json:"service"`
	Environment   string         `json:"environment"`
	RequestID     string         `json:"request_id,omitempty"`
	ActorID       string         `json:"actor_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingPrefix, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:     publisher,
		routingPrefix: routingPrefix,
		service:       service,
		environment:   environment,
	}
}

// Emit publishes an audit record for action. A nil emitter is a no-op.
func (e *AuditEmitter) Emit(ctx context.Context, action, actorID string, payload map[string]any) {
	if e == nil || e.publisher == nil {
		return
	}

	requestID := observability.RequestIDFromContext(ctx)
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		Action:        action,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		ActorID:       actorID,
		Payload:       payload,
	}

	headers := observability.BuildHeaders(requestID, observability.TraceIDFromContext(ctx))
	if err := e.publisher.Publish(ctx, e.routingKey(action), envelope, headers); err != nil {
		observability.IncAMQPPublishError()
		log.Printf("audit publish failed action=%s: %v", action, err)
	}
}

func (e *AuditEmitter) routingKey(action string) string {
	if e.routingPrefix == "" {
		return action
	}
	return e.routingPrefix + "." + action
}
