// Package service orchestrates ledger operations with persistence,
// audit logging, and event publication. The ledger is the source of
// truth; every mutation commits there first, and the durable mirror,
// audit log, and signal bus are updated afterwards. Side-effect
// failures are logged and swallowed so a Redis or Postgres hiccup never
// contradicts a state change the ledger has already committed.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/ledger"
)

// emitter fans a committed ledger event out to the audit log, the
// pub/sub channel for its topic, and the durable event stream.
type emitter struct {
	audit  domain.AuditStore
	bus    domain.SignalBus
	logger *slog.Logger
}

func (e *emitter) emit(ctx context.Context, evt domain.Event) {
	detail := map[string]any{
		"event_id": evt.ID,
		"actor":    evt.Actor,
	}
	if evt.PledgeID != "" {
		detail["pledge_id"] = evt.PledgeID
	}
	for k, v := range evt.Fields {
		detail[k] = v
	}

	if err := e.audit.Log(ctx, evt.Op, detail); err != nil {
		e.logger.WarnContext(ctx, "service: audit log failed",
			slog.String("op", evt.Op),
			slog.String("error", err.Error()),
		)
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		e.logger.WarnContext(ctx, "service: marshal event failed",
			slog.String("op", evt.Op),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := e.bus.Publish(ctx, evt.Channel(), payload); err != nil {
		e.logger.WarnContext(ctx, "service: publish event failed",
			slog.String("op", evt.Op),
			slog.String("channel", evt.Channel()),
			slog.String("error", err.Error()),
		)
	}
	if err := e.bus.StreamAppend(ctx, domain.EventStream, payload); err != nil {
		e.logger.WarnContext(ctx, "service: stream append failed",
			slog.String("op", evt.Op),
			slog.String("error", err.Error()),
		)
	}
}

// mirrorPledge writes the pledge's latest state to the durable store.
func mirrorPledge(ctx context.Context, logger *slog.Logger, store domain.PledgeStore, p domain.Pledge) {
	if err := store.Upsert(ctx, p); err != nil {
		logger.WarnContext(ctx, "service: mirror pledge failed",
			slog.String("pledge_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

// mirrorBalance writes one account's current ledger balance to the
// durable store.
func mirrorBalance(ctx context.Context, logger *slog.Logger, l *ledger.Ledger, store domain.BalanceStore, category domain.Category, account string) {
	b := domain.Balance{
		Category: category,
		Account:  account,
		Amount:   l.BalanceOf(category, account),
	}
	if err := store.Set(ctx, b); err != nil {
		logger.WarnContext(ctx, "service: mirror balance failed",
			slog.String("category", string(category)),
			slog.String("account", account),
			slog.String("error", err.Error()),
		)
	}
}
