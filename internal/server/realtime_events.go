package server

import (
	"context"
	"time"

	"verses/internal/middleware"
	"verses/internal/models"
	"verses/internal/notifications"
)

func (s *Server) publishPoemEvent(ctx context.Context, kind string, poem *models.PoemResponse) {
	s.publishFeedEvent(ctx, notifications.NewFeedEvent(kind, poem))
}

// publishFeedEvent fans ev out through Redis when available, so every
// instance's hub delivers it; otherwise it goes straight to the local hub.
func (s *Server) publishFeedEvent(ctx context.Context, ev notifications.FeedEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	if s.notifier.Enabled() {
		if err := s.notifier.PublishFeed(context.WithoutCancel(ctx), ev); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish feed event",
				"type", ev.Type, "poem_id", ev.PoemID, "error", err)
		}
		return
	}

	payload, err := ev.Encode()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to encode feed event", "type", ev.Type, "error", err)
		return
	}
	s.hub.BroadcastAll(payload)
}
