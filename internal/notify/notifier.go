// Package notify delivers transaction outcome notifications to chat
// channels. Messages go to every registered sender (Telegram, Discord) and
// are filtered by event type so operators only receive what they ask for.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// Event names accepted in notify.events.
const (
	EventTxSucceeded = "tx_succeeded"
	EventTxFailed    = "tx_failed"
)

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier dispatches notifications to one or more Senders.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier for the given senders. Only events listed in
// events are forwarded by Notify; an empty list allows everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger,
	}
}

// Enabled reports whether at least one sender is registered.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// NotifyOutcome formats a finished orchestrator run and sends it when its
// event type is allowed.
func (n *Notifier) NotifyOutcome(ctx context.Context, out domain.TxOutcome) error {
	event := EventTxFailed
	if out.Succeeded() {
		event = EventTxSucceeded
	}
	title, message := FormatOutcome(out)
	return n.Notify(ctx, event, title, message)
}

// Notify sends a notification to all senders if event is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "notify: event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// dispatch sends to every sender. A failing sender does not stop delivery to
// the others; failures are combined into one error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "notify: sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notify: sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// FormatOutcome renders a title and a plain-text body for out.
func FormatOutcome(out domain.TxOutcome) (title, message string) {
	action := strings.ReplaceAll(string(out.Action), "_", " ")
	if out.Succeeded() {
		title = fmt.Sprintf("Fate %s succeeded", action)
	} else {
		title = fmt.Sprintf("Fate %s failed", action)
	}

	var b strings.Builder
	if out.PoolID != "" {
		fmt.Fprintf(&b, "Pool: %s\n", out.PoolID)
	}
	if out.CreatedPoolID != "" {
		fmt.Fprintf(&b, "Created pool: %s\n", out.CreatedPoolID)
	}
	if out.Digest != "" {
		fmt.Fprintf(&b, "Digest: %s\n", out.Digest)
	}
	if out.Error != nil {
		fmt.Fprintf(&b, "Error (%s): %s\n", out.Error.Kind, out.Error.Message)
	}
	fmt.Fprintf(&b, "Run: %s", out.ID)
	return title, b.String()
}
