package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PledgeStore is the durable mirror of the pledge registry.
type PledgeStore interface {
	Upsert(ctx context.Context, p Pledge) error
	GetByID(ctx context.Context, id string) (Pledge, error)
	ListByOwner(ctx context.Context, owner string, opts ListOpts) ([]Pledge, error)
	ListByStatus(ctx context.Context, status PledgeStatus, opts ListOpts) ([]Pledge, error)
	ListAll(ctx context.Context) ([]Pledge, error)
}

// RedemptionStore persists redemption requests.
type RedemptionStore interface {
	Upsert(ctx context.Context, r RedemptionRequest) error
	GetByID(ctx context.Context, id string) (RedemptionRequest, error)
	ListByPledge(ctx context.Context, pledgeID string) ([]RedemptionRequest, error)
	ListOpen(ctx context.Context) ([]RedemptionRequest, error)
	// ListSettledBefore feeds the archiver: settled requests whose
	// settlement time is strictly before the cutoff.
	ListSettledBefore(ctx context.Context, before time.Time) ([]RedemptionRequest, error)
}

// BalanceStore persists credit-token balances per category and account.
type BalanceStore interface {
	Set(ctx context.Context, b Balance) error
	Get(ctx context.Context, category Category, account string) (Balance, error)
	ListAll(ctx context.Context) ([]Balance, error)
}

// RoleStore persists role grants.
type RoleStore interface {
	Grant(ctx context.Context, g RoleGrant) error
	Revoke(ctx context.Context, g RoleGrant) error
	ListAll(ctx context.Context) ([]RoleGrant, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	// ListBefore feeds the archiver: entries created strictly before
	// the cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
}

// ValuationCache caches the latest oracle valuation per pledge so
// staleness can be answered without touching the registry.
type ValuationCache interface {
	SetValuation(ctx context.Context, pledgeID string, value int64, ts time.Time) error
	GetValuation(ctx context.Context, pledgeID string) (int64, time.Time, error)
}

// StreamMessage is one durable message read back from the signal bus.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus publishes ledger events to ephemeral pub/sub channels and
// appends them to a durable, ordered stream.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// RateLimiter throttles per-key request rates across API replicas.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locks guarding operations that must
// not run twice concurrently across API replicas.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	// PutMultipart splits large payloads into concurrently uploaded parts.
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Archiver exports aged audit data to blob storage.
type Archiver interface {
	ArchiveAudit(ctx context.Context, before time.Time) (int64, error)
	ArchiveRedemptions(ctx context.Context, before time.Time) (int64, error)
}
