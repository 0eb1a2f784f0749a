package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"disclone/internal/mocks"
	"disclone/internal/observability"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "audit", "disclone", "test")
	ctx := observability.WithRequestID(context.Background(), "req-1")

	pub.On("Publish", ctx, "audit.channel_created", mock.MatchedBy(func(e AuditEnvelope) bool {
		return e.Action == ActionChannelCreated && e.ActorID == "admin" && e.RequestID == "req-1" && e.Payload["name"] == "general"
	}), map[string]string{"x-request-id": "req-1"}).Return(nil).Once()

	emitter.Emit(ctx, ActionChannelCreated, "admin", map[string]any{"name": "general"})

	pub.AssertExpectations(t)
}

func TestEmitOnNilEmitterIsNoop(t *testing.T) {
	var emitter *AuditEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), ActionMessageSent, "u1", nil)
	})
}

func TestEmitSwallowsPublishError(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "", "disclone", "test")

	pub.On("Publish", mock.Anything, ActionMessageSent, mock.Anything, mock.Anything).Return(assert.AnError).Once()

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), ActionMessageSent, "u1", nil)
	})
	pub.AssertExpectations(t)
}
