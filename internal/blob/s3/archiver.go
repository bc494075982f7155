package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harborfin/rwaledger/internal/domain"
)

// multipartThreshold is the payload size above which the archiver
// switches from a single PutObject to a multipart upload.
const multipartThreshold = 5 * 1024 * 1024

// ArchiveImpl implements domain.Archiver by querying the domain stores for
// aged records, serializing them to JSONL, and uploading the result to S3.
//
// Deletion of the archived rows from the primary store is intentionally
// NOT performed here -- that is a separate, explicit step to be executed
// after the archive has been verified.
type ArchiveImpl struct {
	writer      domain.BlobWriter
	audit       domain.AuditStore
	redemptions domain.RedemptionStore
	prefix      string
}

// NewArchiver creates a new ArchiveImpl. Objects are written under the
// given key prefix, e.g. "archive".
func NewArchiver(
	writer domain.BlobWriter,
	audit domain.AuditStore,
	redemptions domain.RedemptionStore,
	prefix string,
) *ArchiveImpl {
	if prefix == "" {
		prefix = "archive"
	}
	return &ArchiveImpl{
		writer:      writer,
		audit:       audit,
		redemptions: redemptions,
		prefix:      prefix,
	}
}

var _ domain.Archiver = (*ArchiveImpl)(nil)

// ArchiveAudit queries all audit entries before the cutoff, serializes
// them to JSONL, and uploads the file at {prefix}/audit/YYYY-MM.jsonl.
// The archival itself is recorded in the audit log and the count of
// archived records is returned.
func (a *ArchiveImpl) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.audit.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}

	path := a.archivePath("audit", before)
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
	}

	count := int64(len(entries))

	if err := a.audit.Log(ctx, "archive.audit", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive audit log: %w", err)
	}

	return count, nil
}

// ArchiveRedemptions queries settled redemption requests before the
// cutoff, serializes them to JSONL, and uploads the file at
// {prefix}/redemptions/YYYY-MM.jsonl. The archival event is recorded in
// the audit log and the count of archived records is returned.
func (a *ArchiveImpl) ArchiveRedemptions(ctx context.Context, before time.Time) (int64, error) {
	requests, err := a.redemptions.ListSettledBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive redemptions query: %w", err)
	}
	if len(requests) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(requests)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive redemptions marshal: %w", err)
	}

	path := a.archivePath("redemptions", before)
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive redemptions upload: %w", err)
	}

	count := int64(len(requests))

	if err := a.audit.Log(ctx, "archive.redemptions", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive redemptions audit log: %w", err)
	}

	return count, nil
}

// upload picks the upload mode by payload size.
func (a *ArchiveImpl) upload(ctx context.Context, path string, buf []byte) error {
	if len(buf) > multipartThreshold {
		return a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), multipartThreshold)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/audit/2025-01.jsonl
//	archive/redemptions/2025-01.jsonl
func (a *ArchiveImpl) archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("%s/%s/%s.jsonl", a.prefix, kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
