package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"fedra/domain/federation"
	"fedra/infra/ledger"
	"fedra/service"
)

// fakeLedger answers the full operator surface with canned values.
type fakeLedger struct {
	registered  bool
	unregisters int
	state       federation.ServiceState
	stateErr    error
}

func (f *fakeLedger) AnnounceService(context.Context, federation.Requirements, federation.Endpoint, string) (common.Hash, error) {
	return common.Hash{1}, nil
}
func (f *fakeLedger) PlaceBid(context.Context, string, uint64, federation.Endpoint) (common.Hash, error) {
	return common.Hash{2}, nil
}
func (f *fakeLedger) ChooseProvider(context.Context, string, uint64) (common.Hash, error) {
	return common.Hash{3}, nil
}
func (f *fakeLedger) ConfirmDeployed(context.Context, string, string) (common.Hash, error) {
	return common.Hash{4}, nil
}
func (f *fakeLedger) ServiceState(context.Context, string) (federation.ServiceState, error) {
	return f.state, f.stateErr
}
func (f *fakeLedger) Bid(_ context.Context, id string, i uint64) (federation.Bid, error) {
	return federation.Bid{ServiceID: id, Index: i, Provider: "0xp", Price: 30}, nil
}
func (f *fakeLedger) ServiceInfo(_ context.Context, id string, _ bool) (federation.ServiceInfo, error) {
	return federation.ServiceInfo{ID: id, FederatedHost: "10.0.2.2"}, nil
}
func (f *fakeLedger) IsWinner(context.Context, string) (bool, error) { return true, nil }
func (f *fakeLedger) Account() common.Address                        { return common.Address{} }
func (f *fakeLedger) RegisterDomain(context.Context, string) (common.Hash, error) {
	f.registered = true
	return common.Hash{5}, nil
}
func (f *fakeLedger) UnregisterDomain(context.Context) (common.Hash, error) {
	f.unregisters++
	return common.Hash{6}, nil
}
func (f *fakeLedger) Registered() bool { return f.registered }
func (f *fakeLedger) Receipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, ledger.ErrNotFound
}

type fakeRunner struct{}

func (fakeRunner) RunConsumer(context.Context) (service.ConsumerResult, error) {
	return service.ConsumerResult{ServiceID: "service1", FederatedHost: "10.0.2.2"}, nil
}
func (fakeRunner) RunProvider(context.Context) (service.ProviderResult, error) {
	return service.ProviderResult{ServiceID: "service1", Won: true}, nil
}

func testServer(t *testing.T) (*Server, *fakeLedger, *service.Sessions) {
	t.Helper()
	led := &fakeLedger{}
	sessions := service.NewSessions()
	return New(led, sessions, fakeRunner{}, nil), led, sessions
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestUnregisterBlockedWhileSessionsActive(t *testing.T) {
	s, led, sessions := testServer(t)
	sessions.Add("service1")

	w := do(t, s, http.MethodDelete, "/unregister_domain", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if led.unregisters != 0 {
		t.Error("unregister must not reach the ledger while sessions are live")
	}

	sessions.Remove("service1")
	w = do(t, s, http.MethodDelete, "/unregister_domain", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after sessions drained, got %d", w.Code)
	}
	if led.unregisters != 1 {
		t.Errorf("unregister calls: got %d", led.unregisters)
	}
}

func TestAnnounceValidatesRequirements(t *testing.T) {
	s, _, _ := testServer(t)

	w := do(t, s, http.MethodPost, "/announce_service",
		`{"service_id":"service1","requirements":"not-a-requirement","endpoint":{}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed requirements, got %d", w.Code)
	}

	w = do(t, s, http.MethodPost, "/announce_service",
		`{"service_id":"service1","requirements":"service=alpine;replicas=1","endpoint":{"ip_address":"192.168.56.104","vxlan_id":200,"vxlan_port":4789,"federation_net":"10.0.0.0/16"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
}

func TestStateAndErrorMapping(t *testing.T) {
	s, led, _ := testServer(t)
	led.state = federation.Closed

	w := do(t, s, http.MethodGet, "/service/service1/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["state"] != "Closed" {
		t.Errorf("state: got %q", body["state"])
	}

	led.stateErr = ledger.ErrNotFound
	if w := do(t, s, http.MethodGet, "/service/missing/state", ""); w.Code != http.StatusNotFound {
		t.Errorf("ErrNotFound should map to 404, got %d", w.Code)
	}
	led.stateErr = ledger.ErrUnavailable
	if w := do(t, s, http.MethodGet, "/service/service1/state", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("ErrUnavailable should map to 503, got %d", w.Code)
	}
}

func TestBidQueryParsesIndex(t *testing.T) {
	s, _, _ := testServer(t)

	w := do(t, s, http.MethodGet, "/service/service1/bid/2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["index"].(float64) != 2 || body["price"].(float64) != 30 {
		t.Errorf("unexpected bid body: %v", body)
	}

	if w := do(t, s, http.MethodGet, "/service/service1/bid/nope", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad index should map to 400, got %d", w.Code)
	}
}

func TestReceiptNotFound(t *testing.T) {
	s, _, _ := testServer(t)
	if w := do(t, s, http.MethodGet, "/tx/0xabc/receipt", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing receipt should map to 404, got %d", w.Code)
	}
}

func TestRunEndpoints(t *testing.T) {
	s, _, _ := testServer(t)

	w := do(t, s, http.MethodPost, "/run/consumer", "")
	if w.Code != http.StatusOK {
		t.Fatalf("run consumer: got %d", w.Code)
	}
	w = do(t, s, http.MethodPost, "/run/provider", "")
	if w.Code != http.StatusOK {
		t.Fatalf("run provider: got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["won"] != true {
		t.Errorf("expected won=true, got %v", body["won"])
	}
}
