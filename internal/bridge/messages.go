package bridge

import (
	"context"

	go_json "github.com/goccy/go-json"

	"github.com/viiraa/healthsync/internal/analytics"
	"github.com/viiraa/healthsync/internal/xslog"
)

// Message is the inbound envelope from the web surface.
type Message struct {
	Type    string             `json:"type"`
	Payload go_json.RawMessage `json:"payload"`
}

type analyticsPayload struct {
	Event      string               `json:"event"`
	Properties analytics.Properties `json:"properties"`
}

type navigatePayload struct {
	URL string `json:"url"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Handle dispatches one inbound message. The message set is closed;
// unknown types are logged and ignored, never fatal: the page ships
// independently of this binary and may speak a newer dialect.
func (b *Bridge) Handle(ctx context.Context, raw []byte) {
	var msg Message
	if err := go_json.Unmarshal(raw, &msg); err != nil {
		b.logger.Warn("undecodable surface message", xslog.Error(err))
		return
	}

	switch msg.Type {
	case "logout":
		if err := b.control.SignOut(ctx); err != nil {
			b.logger.Warn("sign-out from surface failed", xslog.Error(err))
		}
		b.SetSession(ctx, nil)

	case "analytics":
		var payload analyticsPayload
		if err := go_json.Unmarshal(msg.Payload, &payload); err != nil || payload.Event == "" {
			b.logger.Warn("malformed analytics message", xslog.Error(err))
			return
		}
		b.collector.Track(ctx, payload.Event, payload.Properties)

	case "requestHealthData":
		b.pushHealthData(ctx)

	case "requestHealthKitAuth":
		if err := b.permissions.RequestPermissions(ctx); err != nil {
			b.logger.Warn("permission request from surface failed", xslog.Error(err))
			return
		}
		b.pushHealthData(ctx)

	case "navigate":
		var payload navigatePayload
		_ = go_json.Unmarshal(msg.Payload, &payload)
		b.logger.Info("surface navigation", xslog.URL(payload.URL))

	case "error":
		var payload errorPayload
		_ = go_json.Unmarshal(msg.Payload, &payload)
		b.logger.Warn("surface reported error", xslog.Status(payload.Message))

	default:
		b.logger.Info("ignoring unknown surface message", xslog.MessageType(msg.Type))
	}
}
