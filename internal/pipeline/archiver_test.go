package pipeline

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobArchiver struct {
	auditCutoff      time.Time
	redemptionCutoff time.Time
}

func (f *fakeBlobArchiver) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	f.auditCutoff = before
	return 3, nil
}

func (f *fakeBlobArchiver) ArchiveRedemptions(ctx context.Context, before time.Time) (int64, error) {
	f.redemptionCutoff = before
	return 2, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestArchiverRunUsesRetentionCutoff(t *testing.T) {
	blob := &fakeBlobArchiver{}
	a := NewArchiver(blob, 90, testLogger())

	require.NoError(t, a.Run(context.Background()))

	wantCutoff := time.Now().UTC().AddDate(0, 0, -90)
	assert.WithinDuration(t, wantCutoff, blob.auditCutoff, time.Minute)
	assert.Equal(t, blob.auditCutoff, blob.redemptionCutoff)
}

func TestNextCronTime(t *testing.T) {
	after := time.Date(2025, 3, 10, 14, 30, 45, 0, time.UTC)

	cases := []struct {
		name string
		expr string
		want time.Time
	}{
		{
			name: "every minute",
			expr: "* * * * *",
			want: time.Date(2025, 3, 10, 14, 31, 0, 0, time.UTC),
		},
		{
			name: "daily at 3am",
			expr: "0 3 * * *",
			want: time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "first of month",
			expr: "0 3 1 * *",
			want: time.Date(2025, 4, 1, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "specific minutes",
			expr: "0,30 * * * *",
			want: time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := nextCronTime(tc.expr, after)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCronRejectsMalformedExpressions(t *testing.T) {
	for _, expr := range []string{"", "* * *", "* * * * * *", "x * * * *"} {
		_, err := parseCron(expr)
		assert.Error(t, err, "expr %q", expr)
	}
}
