package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/ledger"
	"github.com/harborfin/rwaledger/internal/notify"
	"github.com/harborfin/rwaledger/internal/pipeline"
	"github.com/harborfin/rwaledger/internal/server"
	"github.com/harborfin/rwaledger/internal/server/handler"
	"github.com/harborfin/rwaledger/internal/server/ws"
	"github.com/harborfin/rwaledger/internal/service"
)

// ServerMode starts the HTTP + WebSocket API backed by the rehydrated
// in-memory ledger. It blocks until the context is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	l, err := a.buildLedger(ctx, deps)
	if err != nil {
		return fmt.Errorf("server mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	// Services.
	pledgeSvc := service.NewPledgeService(l, deps.PledgeStore, deps.AuditStore, deps.SignalBus, a.logger)
	issuanceSvc := service.NewIssuanceService(l, deps.PledgeStore, deps.BalanceStore, deps.LockManager, deps.AuditStore, deps.SignalBus, a.logger)
	valuationSvc := service.NewValuationService(l, deps.PledgeStore, deps.ValuationCache, deps.AuditStore, deps.SignalBus, a.logger)
	redemptionSvc := service.NewRedemptionService(l, deps.PledgeStore, deps.RedemptionStore, deps.BalanceStore, deps.LockManager, deps.AuditStore, deps.SignalBus, a.logger)
	adminSvc := service.NewAdminService(l, deps.RoleStore, deps.AuditStore, deps.SignalBus, deps.Archiver, a.logger)

	// WebSocket hub bridging the signal bus to connected clients.
	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	// Background workers: staleness sweep, operator alerts, scheduled
	// archive runs.
	monitor := pipeline.NewStalenessMonitor(l, deps.SignalBus, 5*time.Minute, a.logger)
	g.Go(func() error {
		return monitor.Run(ctx)
	})

	if notifier := a.buildNotifier(); notifier != nil {
		alerts := pipeline.NewAlertWorker(deps.SignalBus, notifier, a.logger)
		g.Go(func() error {
			return alerts.Run(ctx)
		})
	}

	if deps.Archiver != nil && a.cfg.Archive.Cron != "" {
		archiver := pipeline.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
		g.Go(func() error {
			return archiver.RunCron(ctx, a.cfg.Archive.Cron)
		})
	}

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(a.logger),
		Pledges:     handler.NewPledgeHandler(pledgeSvc, issuanceSvc, a.logger),
		Valuations:  handler.NewValuationHandler(valuationSvc, a.logger),
		Redemptions: handler.NewRedemptionHandler(redemptionSvc, a.logger),
		Admin:       handler.NewAdminHandler(adminSvc, a.cfg.Archive.RetentionDays, a.logger),
		System:      handler.NewSystemHandler(adminSvc, issuanceSvc, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APITokens:   a.cfg.Server.APITokens,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// ArchiveMode runs one cold-storage export of aged audit entries and
// settled redemptions, then exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: archiving is disabled in configuration")
	}

	retention := a.cfg.Archive.RetentionDays
	before := time.Now().UTC().AddDate(0, 0, -retention)
	a.logger.InfoContext(ctx, "starting archive run",
		slog.Int("retention_days", retention),
		slog.String("before", before.Format(time.RFC3339)),
	)

	auditCount, err := deps.Archiver.ArchiveAudit(ctx, before)
	if err != nil {
		return fmt.Errorf("archive mode: audit: %w", err)
	}
	redemptionCount, err := deps.Archiver.ArchiveRedemptions(ctx, before)
	if err != nil {
		return fmt.Errorf("archive mode: redemptions: %w", err)
	}

	a.logger.InfoContext(ctx, "archive run complete",
		slog.Int64("audit_entries", auditCount),
		slog.Int64("redemptions", redemptionCount),
	)
	return nil
}

// MigrateMode applies pending database migrations and exits. The
// migrations themselves run during wiring; this mode exists so deploys
// can migrate without starting the API.
func (a *App) MigrateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "migrations applied")
	return nil
}

// buildNotifier assembles the operator notifier from configuration, or
// returns nil when no channel is configured.
func (a *App) buildNotifier() *notify.Notifier {
	var senders []notify.Sender
	if a.cfg.Notify.TelegramToken != "" && a.cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			a.cfg.Notify.TelegramToken,
			a.cfg.Notify.TelegramChatID,
		))
	}
	if a.cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(a.cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) == 0 {
		return nil
	}
	return notify.NewNotifier(senders, a.cfg.Notify.Events, a.logger)
}

// buildLedger constructs the in-memory ledger from the configured policy
// and rehydrates it from the durable stores.
func (a *App) buildLedger(ctx context.Context, deps *Dependencies) (*ledger.Ledger, error) {
	params := domain.Params{
		MinPledgeValue:          a.cfg.Ledger.MinPledgeValue,
		MaxPledgeValue:          a.cfg.Ledger.MaxPledgeValue,
		LTVCeilingBps:           a.cfg.Ledger.LTVCeilingBps,
		CollateralizationMinBps: a.cfg.Ledger.CollateralizationMinBps,
		ReserveRatioBps:         a.cfg.Ledger.ReserveRatioBps,

		PledgeExpirySeconds:        int64(a.cfg.Ledger.PledgeExpiry.Seconds()),
		RevaluationIntervalSeconds: int64(a.cfg.Ledger.RevaluationInterval.Seconds()),
		RedemptionDelaySeconds:     int64(a.cfg.Ledger.RedemptionDelay.Seconds()),

		TreasuryAccount: a.cfg.Ledger.TreasuryAccount,
	}

	limits := make(map[domain.Category]int64, len(a.cfg.Ledger.CategoryLimits))
	for name, limit := range a.cfg.Ledger.CategoryLimits {
		category, err := domain.ParseCategory(name)
		if err != nil {
			a.logger.WarnContext(ctx, "ignoring limit for unknown category",
				slog.String("category", name),
			)
			continue
		}
		limits[category] = limit
	}

	l := ledger.New(params, limits, a.cfg.Ledger.Admins)

	if err := service.Rehydrate(ctx, l, deps.PledgeStore, deps.RedemptionStore, deps.BalanceStore, deps.RoleStore, a.logger); err != nil {
		return nil, err
	}
	service.PersistBootstrapAdmins(ctx, deps.RoleStore, a.cfg.Ledger.Admins, a.logger)

	return l, nil
}
