package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/notify"
)

// alertChannels are the bus channels the alert worker listens on. Pledge
// lifecycle chatter is deliberately excluded; operators only hear about
// solvency-relevant events.
var alertChannels = []string{
	domain.ChannelValuations,
	domain.ChannelRedemptions,
}

// AlertWorker feeds ledger events from the bus into the notifier, which
// decides what is alertable and renders the operator-facing text.
type AlertWorker struct {
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewAlertWorker creates an AlertWorker.
func NewAlertWorker(bus domain.SignalBus, notifier *notify.Notifier, logger *slog.Logger) *AlertWorker {
	return &AlertWorker{
		bus:      bus,
		notifier: notifier,
		logger:   logger,
	}
}

// Run consumes events until the context is cancelled.
func (w *AlertWorker) Run(ctx context.Context) error {
	for _, ch := range alertChannels {
		msgCh, err := w.bus.Subscribe(ctx, ch)
		if err != nil {
			return fmt.Errorf("alert worker: subscribe %s: %w", ch, err)
		}
		go w.consume(ctx, ch, msgCh)
	}

	<-ctx.Done()
	return ctx.Err()
}

func (w *AlertWorker) consume(ctx context.Context, channel string, msgCh <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				w.logger.Warn("alert worker: subscription closed",
					slog.String("channel", channel),
				)
				return
			}

			var evt domain.Event
			if err := json.Unmarshal(data, &evt); err != nil {
				continue
			}
			if err := w.notifier.Notify(ctx, evt); err != nil {
				w.logger.WarnContext(ctx, "alert worker: notify failed",
					slog.String("op", evt.Op),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
