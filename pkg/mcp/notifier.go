package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/recviz/internal/streaming"
	"github.com/rendis/recviz/pkg/schema"
)

// relayedEvents are the playback events pushed to MCP clients.
var relayedEvents = []string{
	schema.EventStepChanged,
	schema.EventPlaybackStarted,
	schema.EventPlaybackStopped,
	schema.EventBreakpointHit,
	schema.EventSessionExpired,
}

// SessionNotifier pushes playback notifications to the client watching a session.
type SessionNotifier interface {
	Notify(ctx context.Context, sessionID string, payload map[string]any) error
}

// MCPNotifier implements SessionNotifier using MCP server push.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	clients   *SessionRegistry
}

// NewMCPNotifier creates a notifier that pushes via MCP notifications.
func NewMCPNotifier(mcpServer *server.MCPServer, clients *SessionRegistry) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer, clients: clients}
}

// Notify sends a notification to the client that loaded the session.
// Best-effort: returns nil if no client is watching.
func (n *MCPNotifier) Notify(_ context.Context, sessionID string, payload map[string]any) error {
	clientID, ok := n.clients.ClientFor(sessionID)
	if !ok {
		return nil
	}
	err := n.mcpServer.SendNotificationToSpecificClient(clientID, "notifications/message", payload)
	if errors.Is(err, server.ErrSessionNotFound) {
		// Client went away between lookup and send.
		n.clients.Remove(clientID)
		return nil
	}
	return err
}

// Relay subscribes to the hub and forwards playback events through the
// notifier until ctx is done.
func Relay(ctx context.Context, hub streaming.EventHub, notifier SessionNotifier, logger *slog.Logger) {
	events, cancel, err := hub.Subscribe(ctx, streaming.EventFilter{EventTypes: relayedEvents})
	if err != nil {
		logger.Error("mcp relay subscribe failed", slog.String("error", err.Error()))
		return
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := notifier.Notify(ctx, ev.SessionID, notificationPayload(ev)); err != nil {
				logger.Warn("mcp notification failed",
					slog.String("session_id", ev.SessionID),
					slog.String("event_type", ev.EventType),
					slog.String("error", err.Error()))
			}
			if ev.EventType == schema.EventSessionExpired {
				if mn, ok := notifier.(*MCPNotifier); ok {
					mn.clients.Forget(ev.SessionID)
				}
			}
		}
	}
}

func notificationPayload(ev streaming.StreamEvent) map[string]any {
	payload := map[string]any{
		"level":  "info",
		"logger": "recviz",
		"data": map[string]any{
			"session_id": ev.SessionID,
			"run_id":     ev.RunID,
			"event_type": ev.EventType,
			"step":       ev.Step,
		},
	}
	if ev.Payload != nil {
		payload["data"].(map[string]any)["payload"] = ev.Payload
	}
	return payload
}
