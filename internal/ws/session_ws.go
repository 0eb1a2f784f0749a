package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"disclone/internal/client"
	"disclone/internal/middleware"
	"disclone/internal/models"
	"disclone/internal/observability"
	"disclone/internal/telemetry"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 16 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SessionFactory builds the view-model session for a signed-in profile.
type SessionFactory func(profile models.Profile) *client.Session

// SessionHandler serves /ws: one client session per socket.
type SessionHandler struct {
	hub        *Hub
	newSession SessionFactory
	audit      *telemetry.AuditEmitter
}

// NewSessionHandler constructs a SessionHandler. The route must run behind middleware.RequireProfile.
func NewSessionHandler(hub *Hub, newSession SessionFactory, audit *telemetry.AuditEmitter) *SessionHandler {
	return &SessionHandler{hub: hub, newSession: newSession, audit: audit}
}

// Handle upgrades the connection and runs the session until either side closes.
func (h *SessionHandler) Handle(c *gin.Context) {
	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}

	ctx, span := otel.Tracer("disclone/ws").Start(c.Request.Context(), "ws.handshake")
	span.SetAttributes(attribute.String("profile.id", profile.ID))
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.End()
		return
	}
	traceID := span.SpanContext().TraceID().String()
	span.End()

	info := ConnInfo{
		ConnID:      newConnID(),
		ProfileID:   profile.ID,
		Username:    profile.Username,
		DeviceID:    middleware.DeviceID(c),
		IP:          c.ClientIP(),
		RequestID:   observability.RequestIDFromContext(ctx),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.Add(conn, info)
	observability.IncActiveSessions()
	h.audit.Emit(ctx, telemetry.ActionSessionOpened, profile.ID, info.payload(""))

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	session := h.newSession(profile)
	go session.Run(ctx)

	errs := make(chan string, 8)
	go h.writePump(conn, session, errs)
	reason := h.readPump(conn, session, errs)

	cancel()
	<-session.Done()
	h.hub.Remove(profile.ID, conn)
	observability.DecActiveSessions()
	h.audit.Emit(ctx, telemetry.ActionSessionClosed, profile.ID, info.payload(reason))
	conn.Close()
}

// readPump decodes inbound frames into session commands until the socket fails.
func (h *SessionHandler) readPump(conn *websocket.Conn, session *client.Session, errs chan<- string) string {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("websocket read error: %v", err)
			}
			return err.Error()
		}
		cmd, err := DecodeCommand(data)
		if err != nil {
			select {
			case errs <- err.Error():
			default:
			}
			continue
		}
		if !session.Do(cmd) {
			return "session stopped"
		}
	}
}

// writePump is the only writer on conn.
func (h *SessionHandler) writePump(conn *websocket.Conn, session *client.Session, errs <-chan string) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(frame Frame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			return false
		}
		return true
	}

	for {
		select {
		case state, ok := <-session.Updates():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			if !write(Frame{Type: "state", State: &state}) {
				return
			}
		case msg := <-errs:
			if !write(Frame{Type: "error", Error: msg}) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("websocket ping error: %v", err)
				conn.Close()
				return
			}
		}
	}
}
