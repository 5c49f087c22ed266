// Package app implements the portal operations behind the HTTP handlers:
// account signup and login, lead capture and moderation, CV submission, the
// access report shown on the dashboard, and catalog management.
package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"skywardportal/pkg/events"
	"skywardportal/pkg/storage"
	"skywardportal/pkg/store"
)

const (
	defaultPresignExpiry = 15 * time.Minute

	maxCVSize = 5 * 1024 * 1024
)

// App wires the stores and collaborators behind portal operations. The clock
// is injectable so window and expiry behavior is testable.
type App struct {
	store   store.Store
	objects storage.ObjectStore
	events  events.Publisher

	telegramHandle string
	presignExpiry  time.Duration
	now            func() time.Time
}

// Options tunes optional App behavior; zero values get sensible defaults.
type Options struct {
	TelegramHandle string
	PresignExpiry  time.Duration
	Now            func() time.Time
}

// New constructs the application layer.
func New(st store.Store, objects storage.ObjectStore, publisher events.Publisher, opts Options) *App {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = defaultPresignExpiry
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if strings.TrimSpace(opts.TelegramHandle) == "" {
		opts.TelegramHandle = "Dew0277"
	}
	return &App{
		store:          st,
		objects:        objects,
		events:         publisher,
		telegramHandle: opts.TelegramHandle,
		presignExpiry:  opts.PresignExpiry,
		now:            opts.Now,
	}
}

// publish sends an event without failing the triggering operation; the write
// that matters has already been persisted.
func (a *App) publish(ctx context.Context, routingKey string, payload any) {
	if err := a.events.Publish(ctx, routingKey, payload); err != nil {
		slog.Warn("event publish failed", "routing_key", routingKey, "error", err)
	}
}

// sanitizeObjectName keeps storage keys portable across S3 implementations.
func sanitizeObjectName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
