package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"fundscope/internal/catalog"
	"fundscope/internal/eligibility"
	"fundscope/internal/model"
)

const donorHex = "0x7777777777777777777777777777777777777777"

type apiChain struct {
	count   uint64
	details map[uint64]model.Campaign
}

func (a *apiChain) CampaignCount(ctx context.Context) (uint64, error) { return a.count, nil }

func (a *apiChain) Details(ctx context.Context, id uint64) (model.Campaign, error) {
	c, ok := a.details[id]
	if !ok {
		return model.Campaign{}, fmt.Errorf("no campaign %d", id)
	}
	return c, nil
}

func (a *apiChain) Progress(ctx context.Context, id uint64) (model.Progress, error) {
	return model.Progress{}, fmt.Errorf("no progress")
}

func (a *apiChain) LatestBlockNumber(ctx context.Context) (uint64, error) { return 100, nil }
func (a *apiChain) IsStreaming() bool                                     { return false }

func (a *apiChain) ListUserDonations(ctx context.Context, account common.Address, offset, limit uint64) ([]uint64, []*big.Int, error) {
	if offset > 0 {
		return nil, nil, nil
	}
	// Campaign 9 is not in the catalog yet; it must still reach the view.
	return []uint64{9, 1}, []*big.Int{big.NewInt(700), big.NewInt(500)}, nil
}

func (a *apiChain) DonationAmount(ctx context.Context, id uint64, account common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (a *apiChain) CanRefund(ctx context.Context, id uint64, account common.Address) (bool, string, error) {
	return false, "campaign active", nil
}

func (a *apiChain) SimulateSchedule(ctx context.Context, action model.DisbursementAction, id uint64, amount *big.Int, account common.Address) (model.Schedule, error) {
	return model.Schedule{AllowedNow: new(big.Int), NextAt: 123}, nil
}

func (a *apiChain) CommissionRate(ctx context.Context) (uint64, error) { return 250, nil }

type memMetadata struct {
	byID map[uint64]model.Metadata
}

func (m *memMetadata) GetMetadata(ctx context.Context, id uint64) (model.Metadata, bool, error) {
	meta, ok := m.byID[id]
	return meta, ok, nil
}

func (m *memMetadata) PutMetadata(ctx context.Context, meta model.Metadata) error {
	m.byID[meta.CampaignID] = meta
	return nil
}

func newTestServer(t *testing.T) (*Server, *memMetadata) {
	t.Helper()
	chain := &apiChain{
		count: 2,
		details: map[uint64]model.Campaign{
			1: {ID: 1, Title: "well", GoalAmount: big.NewInt(1000), RaisedAmount: big.NewInt(400), Creator: donorHex},
			2: {ID: 2, Title: "school", GoalAmount: big.NewInt(2000), RaisedAmount: big.NewInt(2000), Creator: donorHex},
		},
	}
	cat := catalog.New(chain, chain, nil, nil, catalog.Options{}, nil)
	if err := cat.Load(context.Background()); err != nil {
		t.Fatalf("catalog load: %v", err)
	}
	meta := &memMetadata{byID: make(map[uint64]model.Metadata)}
	s := NewServer(Options{
		Catalog:   cat,
		Ledger:    chain,
		Evaluator: eligibility.NewEvaluator(chain, nil),
		Metadata:  meta,
	}, nil)
	return s, meta
}

func doJSON(t *testing.T, h http.Handler, method, path string, body []byte) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	out := make(map[string]json.RawMessage)
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: undecodable body %q: %v", method, path, w.Body.String(), err)
	}
	return w, out
}

func TestListCampaigns(t *testing.T) {
	s, _ := newTestServer(t)

	w, body := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/campaigns", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var total int
	if err := json.Unmarshal(body["total"], &total); err != nil || total != 2 {
		t.Fatalf("expected 2 campaigns, got %s", body["total"])
	}
}

func TestGetCampaign(t *testing.T) {
	s, _ := newTestServer(t)

	w, _ := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/campaigns/2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w, _ = doJSON(t, s.Handler(), http.MethodGet, "/api/v1/campaigns/99", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", w.Code)
	}

	w, _ = doJSON(t, s.Handler(), http.MethodGet, "/api/v1/campaigns/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", w.Code)
	}
}

func TestEligibilityEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w, body := doJSON(t, s.Handler(), http.MethodGet,
		"/api/v1/campaigns/1/eligibility/"+donorHex+"?action=refund", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var elig model.Eligibility
	if err := json.Unmarshal(body["eligibility"], &elig); err != nil {
		t.Fatalf("undecodable eligibility: %v", err)
	}
	if elig.NextAt != 123 || elig.Reason != "campaign active" {
		t.Fatalf("blocked snapshot must carry retry details: %+v", elig)
	}

	w, _ = doJSON(t, s.Handler(), http.MethodGet,
		"/api/v1/campaigns/1/eligibility/"+donorHex+"?action=burn", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", w.Code)
	}
}

func TestAccountDonations(t *testing.T) {
	s, _ := newTestServer(t)

	w, body := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/accounts/"+donorHex+"/donations", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var donations []model.Donation
	if err := json.Unmarshal(body["donations"], &donations); err != nil {
		t.Fatalf("undecodable donations: %v", err)
	}
	// Campaign 9 trails the catalog (delta lag) but the aggregate saw it;
	// both donations surface, in id order.
	if len(donations) != 2 || donations[0].CampaignID != 1 || donations[1].CampaignID != 9 {
		t.Fatalf("expected donations to campaigns 1 and 9, got %+v", donations)
	}

	w, _ = doJSON(t, s.Handler(), http.MethodGet, "/api/v1/accounts/nothex/donations", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed address, got %d", w.Code)
	}
}

func TestMetadataOverlay(t *testing.T) {
	s, meta := newTestServer(t)

	payload, _ := json.Marshal(model.Metadata{Title: "Village Well", ImageURL: "https://img.example/well.png"})
	w, _ := doJSON(t, s.Handler(), http.MethodPut, "/api/v1/campaigns/1/metadata", payload)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if meta.byID[1].Title != "Village Well" {
		t.Fatalf("metadata not stored: %+v", meta.byID)
	}

	_, body := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/campaigns/1", nil)
	var resp struct {
		Title    string          `json:"title"`
		Metadata *model.Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(body["campaign"], &resp); err != nil {
		t.Fatalf("undecodable campaign: %v", err)
	}
	if resp.Title != "well" {
		t.Fatalf("on-chain title must win, got %q", resp.Title)
	}
	if resp.Metadata == nil || resp.Metadata.Title != "Village Well" {
		t.Fatalf("overlay missing: %+v", resp.Metadata)
	}
}

func TestDisburseWithoutRunner(t *testing.T) {
	s, _ := newTestServer(t)

	payload, _ := json.Marshal(map[string]string{"action": "refund"})
	w, _ := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/campaigns/1/disbursements", payload)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a signer, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w, _ := doJSON(t, s.Handler(), http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
