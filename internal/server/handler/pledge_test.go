package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/server/middleware"
)

type fakePledgeService struct {
	submitted domain.Pledge
	err       error
}

func (f *fakePledgeService) Submit(ctx context.Context, actor, assetID string, declaredValue int64, category domain.Category, metadata map[string]any, redeemable bool) (domain.Pledge, error) {
	if f.err != nil {
		return domain.Pledge{}, f.err
	}
	f.submitted = domain.Pledge{
		ID:            "plg-1",
		AssetID:       assetID,
		Owner:         actor,
		Category:      category,
		Status:        domain.StatusPending,
		DeclaredValue: declaredValue,
		Redeemable:    redeemable,
		Metadata:      metadata,
	}
	return f.submitted, nil
}

func (f *fakePledgeService) Cancel(ctx context.Context, actor, pledgeID string) (domain.Pledge, error) {
	if f.err != nil {
		return domain.Pledge{}, f.err
	}
	return domain.Pledge{ID: pledgeID, Status: domain.StatusCancelled}, nil
}

func (f *fakePledgeService) Verify(ctx context.Context, actor, pledgeID string, officialValue, ltvBps int64) (domain.Pledge, error) {
	if f.err != nil {
		return domain.Pledge{}, f.err
	}
	return domain.Pledge{
		ID:            pledgeID,
		Status:        domain.StatusVerified,
		OfficialValue: officialValue,
		LTVBps:        ltvBps,
		Verifier:      actor,
	}, nil
}

func (f *fakePledgeService) Reject(ctx context.Context, actor, pledgeID, reason string) (domain.Pledge, error) {
	if f.err != nil {
		return domain.Pledge{}, f.err
	}
	return domain.Pledge{ID: pledgeID, Status: domain.StatusRejected, RejectReason: reason}, nil
}

func (f *fakePledgeService) Get(ctx context.Context, id string) (domain.Pledge, error) {
	if f.err != nil {
		return domain.Pledge{}, f.err
	}
	return domain.Pledge{ID: id, Status: domain.StatusPending}, nil
}

func (f *fakePledgeService) GetByAssetID(ctx context.Context, assetID string) (domain.Pledge, error) {
	if f.err != nil {
		return domain.Pledge{}, f.err
	}
	return domain.Pledge{ID: "plg-1", AssetID: assetID}, nil
}

func (f *fakePledgeService) ListByOwner(ctx context.Context, owner string) ([]domain.Pledge, error) {
	return nil, f.err
}

func (f *fakePledgeService) ListByStatus(ctx context.Context, status domain.PledgeStatus) ([]domain.Pledge, error) {
	return []domain.Pledge{{ID: "plg-1", Status: status}}, f.err
}

type fakeIssuanceService struct {
	err error
}

func (f *fakeIssuanceService) Mint(ctx context.Context, actor, pledgeID string) (domain.Pledge, error) {
	if f.err != nil {
		return domain.Pledge{}, f.err
	}
	return domain.Pledge{ID: pledgeID, Status: domain.StatusMinted, CreditAmount: 38_400}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// serve routes the request through a mux with the pledge routes so path
// parameters resolve the same way they do in production.
func servePledge(h *PledgeHandler, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/pledges", h.SubmitPledge)
	mux.HandleFunc("GET /api/pledges", h.ListPledges)
	mux.HandleFunc("GET /api/pledges/{id}", h.GetPledge)
	mux.HandleFunc("POST /api/pledges/{id}/verify", h.VerifyPledge)
	mux.HandleFunc("POST /api/pledges/{id}/reject", h.RejectPledge)
	mux.HandleFunc("POST /api/pledges/{id}/cancel", h.CancelPledge)
	mux.HandleFunc("POST /api/pledges/{id}/mint", h.MintCredit)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func authed(req *http.Request, account string) *http.Request {
	return req.WithContext(middleware.WithAccount(req.Context(), account))
}

func TestSubmitPledgeHandler(t *testing.T) {
	svc := &fakePledgeService{}
	h := NewPledgeHandler(svc, &fakeIssuanceService{}, testLogger())

	body := `{"asset_id":"asset-1","declared_value":50000,"category":"real_estate","redeemable":true,"metadata":{"description":"warehouse","document_hash":"abc"}}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/pledges", strings.NewReader(body)), "alice")

	rec := servePledge(h, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var p domain.Pledge
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "plg-1", p.ID)
	assert.Equal(t, "alice", p.Owner)
	assert.Equal(t, domain.CategoryRealEstate, p.Category)
	assert.Equal(t, int64(50_000), p.DeclaredValue)
}

func TestSubmitPledgeRejectsUnknownCategory(t *testing.T) {
	h := NewPledgeHandler(&fakePledgeService{}, &fakeIssuanceService{}, testLogger())

	body := `{"asset_id":"asset-1","declared_value":50000,"category":"fine_art"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/pledges", strings.NewReader(body)), "alice")

	rec := servePledge(h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitPledgeRequiresAccount(t *testing.T) {
	h := NewPledgeHandler(&fakePledgeService{}, &fakeIssuanceService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/pledges", strings.NewReader(`{}`))
	rec := servePledge(h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyPledgeHandler(t *testing.T) {
	h := NewPledgeHandler(&fakePledgeService{}, &fakeIssuanceService{}, testLogger())

	body := `{"official_value":48000,"ltv_bps":8000}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/pledges/plg-1/verify", strings.NewReader(body)), "vera")

	rec := servePledge(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var p domain.Pledge
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, domain.StatusVerified, p.Status)
	assert.Equal(t, int64(48_000), p.OfficialValue)
	assert.Equal(t, "vera", p.Verifier)
}

func TestMintCreditHandler(t *testing.T) {
	h := NewPledgeHandler(&fakePledgeService{}, &fakeIssuanceService{}, testLogger())

	req := authed(httptest.NewRequest(http.MethodPost, "/api/pledges/plg-1/mint", nil), "adm")
	rec := servePledge(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var p domain.Pledge
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, domain.StatusMinted, p.Status)
	assert.Equal(t, int64(38_400), p.CreditAmount)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.ErrValueOutOfRange, http.StatusBadRequest},
		{"state", domain.ErrNotVerified, http.StatusConflict},
		{"invariant", domain.ErrCollateralizationBelowMin, http.StatusUnprocessableEntity},
		{"authorization", domain.ErrUnauthorized, http.StatusForbidden},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"transient", domain.ErrLockHeld, http.StatusTooManyRequests},
		{"unknown", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("issuance_service: mint %q: %w", "plg-1", tc.err)
			h := NewPledgeHandler(&fakePledgeService{}, &fakeIssuanceService{err: wrapped}, testLogger())

			req := authed(httptest.NewRequest(http.MethodPost, "/api/pledges/plg-1/mint", nil), "adm")
			rec := servePledge(h, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestGetPledgeHandler(t *testing.T) {
	h := NewPledgeHandler(&fakePledgeService{}, &fakeIssuanceService{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/pledges/plg-7", nil)
	rec := servePledge(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var p domain.Pledge
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "plg-7", p.ID)
}

func TestListPledgesRequiresFilter(t *testing.T) {
	h := NewPledgeHandler(&fakePledgeService{}, &fakeIssuanceService{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/pledges", nil)
	rec := servePledge(h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPledgesByStatus(t *testing.T) {
	h := NewPledgeHandler(&fakePledgeService{}, &fakeIssuanceService{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/pledges?status=verified", nil)
	rec := servePledge(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listPledgesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Pledges, 1)
	assert.Equal(t, domain.StatusVerified, resp.Pledges[0].Status)
}

func TestListPledgesByOwnerEmpty(t *testing.T) {
	h := NewPledgeHandler(&fakePledgeService{}, &fakeIssuanceService{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/pledges?owner=alice", nil)
	rec := servePledge(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pledges":[]}`, rec.Body.String())
}
