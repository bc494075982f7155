// Package notify turns solvency-relevant ledger events into operator
// alerts delivered over chat channels. The Notifier owns the
// event-to-text rendering; senders only carry formatted text. An
// operation filter narrows which events reach the channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/harborfin/rwaledger/internal/domain"
)

// Sender delivers one rendered alert over a single channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs and errors.
	Name() string
}

// Notifier renders ledger events and fans them out to the configured
// senders. Rendering decides which operations are worth an alert at
// all; the ops filter, when non-empty, narrows that set further.
type Notifier struct {
	senders []Sender
	ops     map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. With
// an empty ops list every alertable operation passes the filter.
func NewNotifier(senders []Sender, ops []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(ops))
	for _, op := range ops {
		if op = strings.TrimSpace(op); op != "" {
			allowed[op] = true
		}
	}
	return &Notifier{
		senders: senders,
		ops:     allowed,
		logger:  logger,
	}
}

// Notify renders evt and delivers it to every sender. Events that are
// not worth an alert, or that the operation filter excludes, are
// dropped silently.
func (n *Notifier) Notify(ctx context.Context, evt domain.Event) error {
	title, message, ok := renderEvent(evt)
	if !ok {
		return nil
	}
	if len(n.ops) > 0 && !n.ops[evt.Op] {
		n.logger.DebugContext(ctx, "notify: event filtered",
			slog.String("op", evt.Op),
		)
		return nil
	}

	var failed []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.WarnContext(ctx, "notify: delivery failed",
				slog.String("sender", s.Name()),
				slog.String("op", evt.Op),
				slog.String("error", err.Error()),
			)
			failed = append(failed, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(failed, "; "))
	}
	return nil
}

// renderEvent maps a ledger event to operator-facing text. Operations
// with no solvency relevance return ok=false. A revaluation only
// alerts when it left the pledge liquidation-eligible.
func renderEvent(evt domain.Event) (title, message string, ok bool) {
	switch evt.Op {
	case domain.OpLiquidate:
		return "Pledge liquidated",
			fmt.Sprintf("Pledge %s was liquidated by %s.", evt.PledgeID, evt.Actor),
			true
	case domain.OpValuationStale:
		return "Stale valuation",
			fmt.Sprintf("Pledge %s is overdue for revaluation.", evt.PledgeID),
			true
	case domain.OpRevalue:
		if eligible, isBool := evt.Fields["liquidation_eligible"].(bool); isBool && eligible {
			return "Pledge under-collateralized",
				fmt.Sprintf("Pledge %s is liquidation-eligible after revaluation by %s.", evt.PledgeID, evt.Actor),
				true
		}
		return "", "", false
	case domain.OpSettleRedemption:
		return "Redemption settled",
			fmt.Sprintf("Redemption against pledge %s settled by %s.", evt.PledgeID, evt.Actor),
			true
	default:
		return "", "", false
	}
}

// postJSON is the shared HTTP plumbing for webhook-style senders: POST
// the payload as JSON and treat any non-2xx response as an error,
// quoting up to 1 KiB of the response body.
func postJSON(ctx context.Context, client *http.Client, name, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: %s: marshal payload: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: %s: build request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %s: post: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notify: %s: status %d: %s", name, resp.StatusCode, string(detail))
	}
	return nil
}
