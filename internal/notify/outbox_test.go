package notify_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/notify"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubHandler struct {
	name string
	fn   func(ctx context.Context, event domain.Event) error

	mu    sync.Mutex
	calls int
}

func (h *stubHandler) Name() string { return h.name }

func (h *stubHandler) Handle(ctx context.Context, event domain.Event) error {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()

	if h.fn == nil {
		return nil
	}
	return h.fn(ctx, event)
}

func (h *stubHandler) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func TestOutboxRunsEveryHandlerDespiteFailures(t *testing.T) {
	outbox := notify.NewOutbox(time.Second, discardLog)

	failing := &stubHandler{name: "failing", fn: func(context.Context, domain.Event) error { return errors.New("smtp down") }}
	panicking := &stubHandler{name: "panicking", fn: func(context.Context, domain.Event) error { panic("boom") }}
	disabled := &stubHandler{name: "disabled", fn: func(context.Context, domain.Event) error { return notify.ErrChannelDisabled }}
	ok := &stubHandler{name: "ok"}
	courseOnly := &stubHandler{name: "course_only"}

	paid := domain.OrderPaid{}.EventType()
	outbox.Register(failing, paid)
	outbox.Register(panicking, paid)
	outbox.Register(disabled, paid)
	outbox.Register(ok, paid)
	outbox.Register(courseOnly, domain.CourseAccessIssued{}.EventType())

	outbox.Publish(t.Context(), domain.OrderPaid{}, domain.OrderPaid{})

	assert.Equal(t, 2, failing.Calls())
	assert.Equal(t, 2, panicking.Calls())
	assert.Equal(t, 2, disabled.Calls())
	assert.Equal(t, 2, ok.Calls())
	assert.Zero(t, courseOnly.Calls())
}

func TestOutboxBoundsSlowHandlers(t *testing.T) {
	outbox := notify.NewOutbox(20*time.Millisecond, discardLog)

	slow := &stubHandler{name: "slow", fn: func(ctx context.Context, _ domain.Event) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	outbox.Register(slow, domain.OrderPaid{}.EventType())

	start := time.Now()
	outbox.Publish(t.Context(), domain.OrderPaid{})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, slow.Calls())
}

func TestOutboxDetachesFromCallerCancellation(t *testing.T) {
	outbox := notify.NewOutbox(time.Second, discardLog)

	var handlerErr error
	h := &stubHandler{name: "ctx", fn: func(ctx context.Context, _ domain.Event) error {
		handlerErr = ctx.Err()
		return nil
	}}
	outbox.Register(h, domain.OrderPaid{}.EventType())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	outbox.Publish(ctx, domain.OrderPaid{})

	assert.Equal(t, 1, h.Calls())
	assert.NoError(t, handlerErr)
}
