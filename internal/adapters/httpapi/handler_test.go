package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"aeracore/internal/adapters/httpapi"
	"aeracore/internal/core"
	"aeracore/internal/notify"
	"aeracore/pkg/domain"
)

func setupHandler(t *testing.T, opts ...httpapi.Option) (*core.Service, *httpapi.Handler) {
	t.Helper()
	svc := core.NewInMemoryService(core.WithSyncDelay(0))
	t.Cleanup(func() { _ = svc.Close() })
	return svc, httpapi.NewHandler(svc, opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeBody[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	_, h := setupHandler(t)
	resp := do(t, h, http.MethodGet, "/api/health", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	body := decodeBody[map[string]any](t, resp)
	if body["ok"] != true {
		t.Fatalf("unexpected body %v", body)
	}
	if resp.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestInventoryRoundTrip(t *testing.T) {
	_, h := setupHandler(t)
	resp := do(t, h, http.MethodPost, "/api/orgs/CH-9921/inventory", `{"water":"12","food":3.7,"blankets":-4,"medicalKits":2}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("save status %d: %s", resp.Code, resp.Body)
	}
	resp = do(t, h, http.MethodGet, "/api/orgs/CH-9921/inventory", "")
	got := decodeBody[map[string]any](t, resp)
	if got["orgId"] != "CH-9921" || got["water"] != float64(12) || got["food"] != float64(3) || got["blankets"] != float64(0) {
		t.Fatalf("unexpected inventory %v", got)
	}

	resp = do(t, h, http.MethodGet, "/api/orgs/NOPE/inventory", "")
	if got := decodeBody[map[string]any](t, resp); got["water"] != float64(0) {
		t.Fatalf("unknown org reads as zeros, got %v", got)
	}
	if resp := do(t, h, http.MethodPost, "/api/orgs/CH-9921/inventory", `{"fuel":3}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("unknown field must be rejected, got %d", resp.Code)
	}
}

func TestCreateAndListRequests(t *testing.T) {
	_, h := setupHandler(t)
	resp := do(t, h, http.MethodPost, "/api/orgs/CH-9921/requests", `{"item":"water"}`)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "item and quantity required") {
		t.Fatalf("expected validation error, got %d %s", resp.Code, resp.Body)
	}
	resp = do(t, h, http.MethodPost, "/api/orgs/CH-9921/requests", `{"item":"bottled water","quantity":8,"provider":"x","orgName":"y"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", resp.Code, resp.Body)
	}
	created := decodeBody[domain.ReplenishmentRequest](t, resp)
	if created.Item != domain.ItemWaterCases || created.Status != domain.ReplenishmentPending || created.Quantity != 8 {
		t.Fatalf("unexpected request %+v", created)
	}
	if resp := do(t, h, http.MethodPost, "/api/orgs/GHOST/requests", `{"item":"Blankets","quantity":1}`); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown org must 404, got %d", resp.Code)
	}
	list := decodeBody[[]domain.ReplenishmentRequest](t, do(t, h, http.MethodGet, "/api/orgs/CH-9921/requests", ""))
	if len(list) != 2 || list[0].ID != created.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestRequestStatusStocksInventory(t *testing.T) {
	svc, h := setupHandler(t)
	ctx := context.Background()
	if resp := do(t, h, http.MethodPost, "/api/requests/req-1/status", `{}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing status must 400, got %d", resp.Code)
	}
	if resp := do(t, h, http.MethodPost, "/api/requests/missing/status", `{"status":"APPROVED"}`); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown request must 404, got %d", resp.Code)
	}
	resp := do(t, h, http.MethodPost, "/api/requests/req-1/status", `{"status":"stocked","deliveredQuantity":30}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("stock status %d: %s", resp.Code, resp.Body)
	}
	req := decodeBody[domain.ReplenishmentRequest](t, resp)
	if req.Status != domain.ReplenishmentStocked || !req.Stocked {
		t.Fatalf("expected stocked request, got %+v", req)
	}
	inv, err := svc.Inventory(ctx, "CH-9921")
	if err != nil || inv.Water != 150 {
		t.Fatalf("expected water 120+30, got %+v (%v)", inv, err)
	}
	resp = do(t, h, http.MethodPost, "/api/requests/req-1/status", `{"status":"BOGUS"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unknown status must 400, got %d", resp.Code)
	}
}

func TestMemberStatus(t *testing.T) {
	_, h := setupHandler(t)
	if resp := do(t, h, http.MethodPost, "/api/orgs/CH-9921/status", `{"memberId":"u1"}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing status must 400, got %d", resp.Code)
	}
	if resp := do(t, h, http.MethodPost, "/api/orgs/CH-9921/status", `{"memberId":"u1","status":"LOST"}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("invalid status must 400, got %d", resp.Code)
	}
	resp := do(t, h, http.MethodPost, "/api/orgs/CH-9921/status", `{"memberId":"u1","name":"Alice","status":"DANGER"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("set status %d: %s", resp.Code, resp.Body)
	}
	var report struct {
		OK      bool                `json:"ok"`
		Counts  domain.StatusCounts `json:"counts"`
		Members []domain.OrgMember  `json:"members"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !report.OK || report.Counts.Danger != 1 || len(report.Members) != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestBroadcastModeration(t *testing.T) {
	_, h := setupHandler(t)
	resp := do(t, h, http.MethodPost, "/api/orgs/CH-9921/broadcast", `{"message":"you idiot"}`)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "prohibited") {
		t.Fatalf("expected moderation rejection, got %d %s", resp.Code, resp.Body)
	}
	resp = do(t, h, http.MethodPost, "/api/orgs/CH-9921/broadcast", `{"message":"Gym open until 9pm"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("broadcast status %d: %s", resp.Code, resp.Body)
	}
	got := decodeBody[map[string]string](t, do(t, h, http.MethodGet, "/api/orgs/CH-9921/broadcast", ""))
	if got["message"] != "Gym open until 9pm" || got["orgId"] != "CH-9921" {
		t.Fatalf("unexpected broadcast %v", got)
	}
	do(t, h, http.MethodPost, "/api/orgs/CH-9921/broadcast", `{"message":""}`)
	got = decodeBody[map[string]string](t, do(t, h, http.MethodGet, "/api/orgs/CH-9921/broadcast", ""))
	if got["message"] != "" {
		t.Fatalf("empty message must clear, got %v", got)
	}
	if resp := do(t, h, http.MethodGet, "/api/orgs/GHOST/broadcast", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown org must 404, got %d", resp.Code)
	}
}

func TestHelpRequestRoutes(t *testing.T) {
	_, h := setupHandler(t)
	if resp := do(t, h, http.MethodGet, "/api/users/u2/help/active", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("no request yet must 404, got %d", resp.Code)
	}
	resp := do(t, h, http.MethodPost, "/api/users/u2/help", `{"emergencyType":"Flood","isInjured":true,"location":"Oak Ave"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create help %d: %s", resp.Code, resp.Body)
	}
	rec := decodeBody[domain.HelpRequestRecord](t, resp)
	if rec.UserID != "u2" || rec.Priority != domain.PriorityCritical {
		t.Fatalf("unexpected record %+v", rec)
	}
	if resp := do(t, h, http.MethodPost, "/api/help/"+rec.ID+"/location", `{"location":" "}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("blank location must 400, got %d", resp.Code)
	}
	resp = do(t, h, http.MethodPost, "/api/help/"+rec.ID+"/location", `{"location":"Shelter B"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("move %d: %s", resp.Code, resp.Body)
	}
	active := decodeBody[domain.HelpRequestRecord](t, do(t, h, http.MethodGet, "/api/users/u2/help/active", ""))
	if active.ID != rec.ID || active.Location != "Shelter B" {
		t.Fatalf("unexpected active request %+v", active)
	}
}

func TestTickerAndAggregate(t *testing.T) {
	_, h := setupHandler(t)
	got := decodeBody[map[string]string](t, do(t, h, http.MethodGet, "/api/ticker?userId=u1", ""))
	if !strings.Contains(got["message"], "Choir practice cancelled") {
		t.Fatalf("member must see their org broadcast, got %q", got["message"])
	}
	got = decodeBody[map[string]string](t, do(t, h, http.MethodGet, "/api/ticker", ""))
	if got["message"] != core.DefaultTicker {
		t.Fatalf("guest must see the default ticker, got %q", got["message"])
	}
	if resp := do(t, h, http.MethodGet, "/api/ticker?userId=ghost", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown user must 404, got %d", resp.Code)
	}
	agg := decodeBody[[]domain.ItemAggregate](t, do(t, h, http.MethodGet, "/api/replenishment/aggregate", ""))
	if len(agg) != 2 || agg[0].Item != domain.ItemWaterCases || agg[1].Item != domain.ItemMedicalKits {
		t.Fatalf("expected water then medical kit rows from the seed, got %+v", agg)
	}
}

func TestSyncRoute(t *testing.T) {
	svc, h := setupHandler(t)
	ctx := context.Background()
	if _, err := svc.SetOnline(ctx, false); err != nil {
		t.Fatalf("offline: %v", err)
	}
	if _, _, err := svc.SubmitReplenishment(ctx, "CH-9921", domain.ItemBlankets, 5); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := decodeBody[map[string]int](t, do(t, h, http.MethodPost, "/api/sync", ""))
	if got["reconciled"] != 1 {
		t.Fatalf("expected one reconciled record, got %v", got)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	_, h := setupHandler(t)
	if resp := do(t, h, http.MethodGet, "/api/nope", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if resp := do(t, h, http.MethodDelete, "/api/health", ""); resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	svc := core.NewInMemoryService(core.WithMetricsRecorder(metrics))
	h := httpapi.NewHandler(svc, httpapi.WithMetrics(reg))
	do(t, h, http.MethodGet, "/api/orgs/CH-9921/inventory", "")
	resp := do(t, h, http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "get_inventory") {
		t.Fatalf("expected operation metrics, got %d %s", resp.Code, resp.Body)
	}
}

func TestEventStream(t *testing.T) {
	svc, h := setupHandler(t)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(2 * time.Second)
	for svc.Hub().Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if _, _, err := svc.SubmitReplenishment(context.Background(), "CH-9921", domain.ItemFoodBoxes, 3); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev notify.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Revision == 0 || !svc.Hub().Local(ev) {
		t.Fatalf("unexpected event %+v", ev)
	}
}
