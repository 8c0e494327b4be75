package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/taliva/escrow/internal/platform/telemetry/metrics"
	"github.com/taliva/escrow/internal/services/escrow/api/grpc/escrow"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign/campaigntest"
	"github.com/taliva/escrow/internal/services/escrow/engine"
	"github.com/taliva/escrow/internal/services/escrow/ledger"
	"github.com/taliva/escrow/internal/services/escrow/query"
	"github.com/taliva/escrow/internal/services/escrow/registry"
	"github.com/taliva/escrow/internal/services/escrow/storage/memory"
)

func newTestRouter(t *testing.T) (http.Handler, *engine.Engine) {
	t.Helper()
	l := ledger.New(memory.NewEventStore(nil), nil)
	reg := registry.New(l, memory.NewCheckpoints(), zerolog.Nop())
	eng, err := engine.New(l, reg, engine.Options{
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return campaigntest.Epoch },
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	q, err := query.New(reg, l, memory.NewScores(), zerolog.Nop())
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	m := metrics.New()
	return NewRouter(NewHandler(q, Options{Metrics: m.Handler(), Logger: zerolog.Nop()})), eng
}

func seed(t *testing.T, eng *engine.Engine) {
	t.Helper()
	ctx := context.Background()
	for _, c := range []struct{ id, category string }{{"run-1", "running"}, {"swim-1", "swimming"}} {
		if _, err := eng.CreateCampaign(ctx, engine.CreateCampaignInput{
			CampaignID:  c.id,
			AthleteName: "Athlete " + c.id,
			Category:    c.category,
			Goal:        decimal.RequireFromString("1000"),
			Milestones:  campaigntest.Grades(),
		}); err != nil {
			t.Fatalf("create %s: %v", c.id, err)
		}
	}
	if _, err := eng.Deposit(ctx, engine.DepositInput{
		CampaignID: "run-1", InvestorID: "alice", InvestmentID: "inv-1", Amount: decimal.RequireFromString("400"),
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

func get(t *testing.T, h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestListCampaignsFiltersAndSorts(t *testing.T) {
	h, eng := newTestRouter(t)
	seed(t, eng)

	rec := get(t, h, "/v1/campaigns?sort=funded_percentage", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	page := decode[escrow.ListCampaignsResponse](t, rec)
	if page.TotalSize != 2 || page.Campaigns[0].CampaignID != "run-1" {
		t.Fatalf("unexpected page %+v", page)
	}
	if !page.Campaigns[0].FundedPercentage.Equal(decimal.RequireFromString("40")) {
		t.Fatalf("expected 40%% funded, got %s", page.Campaigns[0].FundedPercentage)
	}

	rec = get(t, h, "/v1/campaigns?category=swimming", nil)
	page = decode[escrow.ListCampaignsResponse](t, rec)
	if page.TotalSize != 1 || page.Campaigns[0].CampaignID != "swim-1" {
		t.Fatalf("expected only swim-1, got %+v", page)
	}
}

func TestListCampaignsRejectsBadInput(t *testing.T) {
	h, _ := newTestRouter(t)

	for path, wantCode := range map[string]string{
		"/v1/campaigns?page_size=abc":   "INVALID_ARGUMENT",
		"/v1/campaigns?sort=loudest":    "INVALID_ARGUMENT",
		"/v1/campaigns?page_token=@@@@": "INVALID_PAGE_TOKEN",
	} {
		rec := get(t, h, path, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
		body := decode[errorBody](t, rec)
		if body.Error.Code != wantCode || body.Error.Message == "" {
			t.Fatalf("%s: unexpected error body %+v", path, body)
		}
	}
}

func TestGetCampaign(t *testing.T) {
	h, eng := newTestRouter(t)
	seed(t, eng)

	rec := get(t, h, "/v1/campaigns/run-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	c := decode[escrow.Campaign](t, rec)
	if !c.Escrow.Equal(decimal.RequireFromString("400")) || len(c.Milestones) != 4 {
		t.Fatalf("unexpected campaign %+v", c)
	}

	rec = get(t, h, "/v1/campaigns/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decode[errorBody](t, rec); body.Error.Code != "NOT_FOUND" {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestActivityHonorsAcceptLanguage(t *testing.T) {
	h, eng := newTestRouter(t)
	seed(t, eng)

	rec := get(t, h, "/v1/campaigns/run-1/activity", map[string]string{"Accept-Language": "pt-BR,pt;q=0.9"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	feed := decode[escrow.ListActivityResponse](t, rec)
	if len(feed.Entries) == 0 {
		t.Fatal("expected activity entries")
	}
	found := false
	for _, entry := range feed.Entries {
		if strings.Contains(entry.Message, "investiu") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected pt-BR deposit message, got %+v", feed.Entries)
	}
}

func TestPortfolio(t *testing.T) {
	h, eng := newTestRouter(t)
	seed(t, eng)

	rec := get(t, h, "/v1/investors/alice/portfolio", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	p := decode[escrow.GetPortfolioResponse](t, rec)
	if len(p.Positions) != 1 || !p.TotalInvested.Equal(decimal.RequireFromString("400")) {
		t.Fatalf("unexpected portfolio %+v", p)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := get(t, h, "/healthz", map[string]string{RequestIDHeader: "req-42"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "req-42" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	if rec = get(t, h, "/healthz", nil); rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}
}

func TestHealthReportsLoading(t *testing.T) {
	h := NewRouter(NewHandler(nil, Options{Ready: func() bool { return false }, Logger: zerolog.Nop()}))
	if rec := get(t, h, "/healthz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while loading, got %d", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	h, eng := newTestRouter(t)
	seed(t, eng)
	rec := get(t, h, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
