package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Vittorio94/fatcat-reclaims/internal/reclaim"
	"github.com/Vittorio94/fatcat-reclaims/internal/store"
)

type fakeZoneService struct {
	snapshots map[string]reclaim.Snapshot
}

func (f *fakeZoneService) Symbols() []string {
	symbols := make([]string, 0, len(f.snapshots))
	for s := range f.snapshots {
		symbols = append(symbols, s)
	}
	return symbols
}

func (f *fakeZoneService) Snapshot(symbol string) (reclaim.Snapshot, bool) {
	snap, ok := f.snapshots[symbol]
	return snap, ok
}

func (f *fakeZoneService) Snapshots() []reclaim.Snapshot {
	out := make([]reclaim.Snapshot, 0, len(f.snapshots))
	for _, s := range f.snapshots {
		out = append(out, s)
	}
	return out
}

type fakeArchive struct {
	zones []store.ReclaimedZone
	err   error
	gotSymbol string
	gotLimit  int
}

func (f *fakeArchive) ListReclaimed(_ context.Context, symbol string, limit int) ([]store.ReclaimedZone, error) {
	f.gotSymbol = symbol
	f.gotLimit = limit
	return f.zones, f.err
}

func testServer(zones ZoneService, archive ReclaimArchive) *Server {
	return NewServer(ServerConfig{ProductionMode: true, AllowedOrigins: "*"}, nil, zones, archive)
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(&fakeZoneService{snapshots: map[string]reclaim.Snapshot{
		"BTCUSDT": {Symbol: "BTCUSDT"},
	}}, nil)

	w := doRequest(s, http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("status field = %v", response["status"])
	}
}

func TestGetZonesForSymbol(t *testing.T) {
	snap := reclaim.Snapshot{Symbol: "ETHUSDT", LastPrice: 3900, BarIndex: 7, Time: time.Unix(1700000000, 0)}
	s := testServer(&fakeZoneService{snapshots: map[string]reclaim.Snapshot{"ETHUSDT": snap}}, nil)

	w := doRequest(s, http.MethodGet, "/api/zones/ethusdt")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var got reclaim.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Symbol != "ETHUSDT" || got.LastPrice != 3900 {
		t.Errorf("snapshot = %+v", got)
	}

	if w := doRequest(s, http.MethodGet, "/api/zones/DOGEUSDT"); w.Code != http.StatusNotFound {
		t.Errorf("untracked symbol status = %d", w.Code)
	}
}

func TestGetReclaimed(t *testing.T) {
	archive := &fakeArchive{zones: []store.ReclaimedZone{
		{ID: "z1", Symbol: "BTCUSDT", Side: "bullish", EV: 2},
	}}
	s := testServer(&fakeZoneService{}, archive)

	w := doRequest(s, http.MethodGet, "/api/reclaimed?symbol=btcusdt&limit=10")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if archive.gotSymbol != "BTCUSDT" || archive.gotLimit != 10 {
		t.Errorf("archive called with symbol=%q limit=%d", archive.gotSymbol, archive.gotLimit)
	}

	var response struct {
		Reclaimed []store.ReclaimedZone `json:"reclaimed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if len(response.Reclaimed) != 1 || response.Reclaimed[0].ID != "z1" {
		t.Errorf("reclaimed = %+v", response.Reclaimed)
	}
}

func TestGetReclaimedValidation(t *testing.T) {
	s := testServer(&fakeZoneService{}, &fakeArchive{})

	if w := doRequest(s, http.MethodGet, "/api/reclaimed?limit=0"); w.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d", w.Code)
	}
	if w := doRequest(s, http.MethodGet, "/api/reclaimed?limit=5000"); w.Code != http.StatusBadRequest {
		t.Errorf("limit=5000 status = %d", w.Code)
	}
}

func TestGetReclaimedArchiveDisabled(t *testing.T) {
	s := testServer(&fakeZoneService{}, nil)

	if w := doRequest(s, http.MethodGet, "/api/reclaimed"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", w.Code)
	}
}

func TestGetReclaimedArchiveError(t *testing.T) {
	s := testServer(&fakeZoneService{}, &fakeArchive{err: errors.New("connection refused")})

	if w := doRequest(s, http.MethodGet, "/api/reclaimed"); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	if !rl.Allow("k") || !rl.Allow("k") {
		t.Fatal("first two requests must pass")
	}
	if rl.Allow("k") {
		t.Fatal("third request must be limited")
	}
	if !rl.Allow("other") {
		t.Fatal("separate keys must not share a budget")
	}
}
