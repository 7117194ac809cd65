package notifications

import (
	"context"
	"encoding/json"
	"log"

	"worldnews/internal/middleware"
)

// Event types delivered to realtime clients.
const (
	EventThemeUpdated        = "theme_updated"
	EventPostCreated         = "post_created"
	EventPostReactionUpdated = "post_reaction_updated"
	EventSessionRevoked      = "session_revoked"
)

// Event is the envelope written to WebSocket clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher routes events to local clients, or through Redis when a notifier is
// available so every instance's hub receives them exactly once.
type Publisher struct {
	hub      *Hub
	notifier *Notifier
}

// NewPublisher returns a Publisher. Either argument may be nil.
func NewPublisher(hub *Hub, notifier *Notifier) *Publisher {
	return &Publisher{hub: hub, notifier: notifier}
}

// PublishUser delivers an event to every connection of one user.
func (p *Publisher) PublishUser(ctx context.Context, userID uint, eventType string, payload any) {
	message, ok := encode(eventType, payload)
	if !ok {
		return
	}
	if p.notifier.Enabled() {
		if err := p.notifier.PublishUser(ctx, userID, message); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish user event", "event", eventType, "user_id", userID, "error", err)
		}
		return
	}
	if p.hub != nil {
		p.hub.Broadcast(userID, message)
	}
}

// PublishBroadcast delivers an event to every connection.
func (p *Publisher) PublishBroadcast(ctx context.Context, eventType string, payload any) {
	message, ok := encode(eventType, payload)
	if !ok {
		return
	}
	if p.notifier.Enabled() {
		if err := p.notifier.PublishBroadcast(ctx, message); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish broadcast event", "event", eventType, "error", err)
		}
		return
	}
	if p.hub != nil {
		p.hub.BroadcastAll(message)
	}
}

func encode(eventType string, payload any) (string, bool) {
	raw, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		log.Printf("failed to marshal %s event: %v", eventType, err)
		return "", false
	}
	return string(raw), true
}
