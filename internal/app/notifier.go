package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// subscriberBuffer is how many undelivered notifications a slow subscriber may hold.
const subscriberBuffer = 8

// Notifier keeps at most one visible notification. A new message replaces the
// previous one; each message expires after the display duration. Subscribers
// receive every message as it is posted.
type Notifier struct {
	duration time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	current *domain.Notification
	subs    map[chan domain.Notification]struct{}
}

// NewNotifier creates a notifier with the given display duration.
func NewNotifier(duration time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		duration: duration,
		logger:   logger,
		now:      time.Now,
		subs:     make(map[chan domain.Notification]struct{}),
	}
}

// Notify implements ports.Notifier.
func (n *Notifier) Notify(ctx context.Context, level domain.NotificationLevel, message string) {
	now := n.now()
	note := domain.Notification{
		Message:   message,
		Level:     level,
		CreatedAt: now,
		ExpiresAt: now.Add(n.duration),
	}

	n.logger.InfoContext(ctx, "notification", slog.String("level", string(level)), slog.String("message", message))

	n.mu.Lock()
	defer n.mu.Unlock()

	n.current = &note

	for ch := range n.subs {
		select {
		case ch <- note:
		default:
			n.logger.DebugContext(ctx, "dropping notification for slow subscriber")
		}
	}
}

// Current returns the visible notification, if one has not yet expired.
func (n *Notifier) Current() (domain.Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil || !n.current.Active(n.now()) {
		return domain.Notification{}, false
	}

	return *n.current, true
}

// Subscribe returns a channel of future notifications. The channel is closed
// once ctx is done.
func (n *Notifier) Subscribe(ctx context.Context) <-chan domain.Notification {
	ch := make(chan domain.Notification, subscriberBuffer)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()

		n.mu.Lock()
		delete(n.subs, ch)
		close(ch)
		n.mu.Unlock()
	}()

	return ch
}
