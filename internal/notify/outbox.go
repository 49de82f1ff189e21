// Package notify delivers post-commit side effects of reconciled payments:
// customer and operator emails, WhatsApp messages and event publication.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout = 5 * time.Second
	maxParallel    = 4
)

// Handler reacts to one published event. Errors are logged by the Outbox.
type Handler interface {
	Name() string
	Handle(ctx context.Context, event domain.Event) error
}

// Outbox runs registered handlers for published events. Publish waits for every
// handler but never fails: each handler is bounded by its own timeout and runs
// detached from the caller's cancellation.
type Outbox struct {
	handlers map[string][]Handler
	timeout  time.Duration
	log      *slog.Logger
}

var _ port.EventPublisher = (*Outbox)(nil)

func NewOutbox(timeout time.Duration, log *slog.Logger) *Outbox {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	return &Outbox{
		handlers: make(map[string][]Handler),
		timeout:  timeout,
		log:      log,
	}
}

// Register subscribes h to the given event types. It is not safe to call concurrently with Publish.
func (o *Outbox) Register(h Handler, eventTypes ...string) {
	for _, t := range eventTypes {
		o.handlers[t] = append(o.handlers[t], h)
	}
}

func (o *Outbox) Publish(ctx context.Context, events ...domain.Event) {
	detached := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(maxParallel)

	for _, event := range events {
		for _, h := range o.handlers[event.EventType()] {
			g.Go(func() error {
				o.run(detached, h, event)
				return nil
			})
		}
	}

	_ = g.Wait()
}

func (o *Outbox) run(ctx context.Context, h Handler, event domain.Event) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("notification handler panicked",
				"method", "Outbox.run", "handler", h.Name(), "event", event.EventType(), "panic", r)
		}
	}()

	err := h.Handle(ctx, event)
	switch {
	case err == nil:
		o.log.Info("notification delivered", "handler", h.Name(), "event", event.EventType())
	case errors.Is(err, ErrChannelDisabled), errors.Is(err, ErrNoRecipient):
		o.log.Warn("notification skipped", "handler", h.Name(), "event", event.EventType(), "err", err)
	default:
		o.log.Error("notification failed",
			"method", "Outbox.run", "handler", h.Name(), "event", event.EventType(), "err", err)
	}
}
