package iap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"3tcapital/ms_ewaybill_core/internal/core/ewaybill"
	"3tcapital/ms_ewaybill_core/internal/infrastructure/cache"
	"3tcapital/ms_ewaybill_core/internal/testutil"
)

// routeHandler answers one IAP path. call is 1-based per path.
type routeHandler func(call int, params map[string]any) any

// fakeIAP is a JSON-RPC server recording every call per path.
type fakeIAP struct {
	t        *testing.T
	server   *httptest.Server
	mu       sync.Mutex
	calls    map[string][]map[string]any
	handlers map[string]routeHandler
}

func newFakeIAP(t *testing.T, handlers map[string]routeHandler) *fakeIAP {
	t.Helper()
	f := &fakeIAP{
		t:        t,
		calls:    make(map[string][]map[string]any),
		handlers: handlers,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeIAP) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JSONRPC string         `json:"jsonrpc"`
		Method  string         `json:"method"`
		Params  map[string]any `json:"params"`
		ID      string         `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("failed to decode rpc request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.JSONRPC != "2.0" || req.Method != "call" {
		f.t.Errorf("unexpected rpc envelope: %+v", req)
	}

	f.mu.Lock()
	f.calls[r.URL.Path] = append(f.calls[r.URL.Path], req.Params)
	call := len(f.calls[r.URL.Path])
	handler := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if handler == nil {
		f.t.Errorf("unexpected call to %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      req.ID,
		"result":  handler(call, req.Params),
	})
}

func (f *fakeIAP) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[path])
}

func (f *fakeIAP) params(path string, call int) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if call < 1 || call > len(f.calls[path]) {
		f.t.Fatalf("no call %d recorded for %s", call, path)
	}
	return f.calls[path][call-1]
}

func (f *fakeIAP) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += len(c)
	}
	return n
}

// tokenSequence hands out tok-1, tok-2, ... on each authentication.
func tokenSequence(prefix string) routeHandler {
	return func(call int, _ map[string]any) any {
		return map[string]any{"data": map[string]any{"AuthToken": prefix + string(rune('0'+call))}}
	}
}

func respondError(code, message string) map[string]any {
	return map[string]any{"error": []map[string]any{{"code": code, "message": message}}}
}

func testCompany() ewaybill.Company {
	return ewaybill.Company{
		ID:               7,
		Name:             "Test Company",
		GSTIN:            "36AABCT1332L011",
		EDIUsername:      "edi-user",
		EDIPassword:      "edi-pass",
		EwaybillUsername: "ewb-user",
		EwaybillPassword: "ewb-pass",
	}
}

func newTestClient(t *testing.T, f *fakeIAP, opts ...ConnectorOption) *Client {
	t.Helper()
	log := testutil.NewTestLogger()
	connector := NewConnector(f.server.URL, "acc-token", "db-uuid", f.server.Client(), log, opts...)
	store := cache.NewTokenCache()
	edi := NewAuthManager(ChannelEDI, connector, store, time.Hour, log)
	ewb := NewAuthManager(ChannelEwaybill, connector, store, time.Hour, log)
	return NewClient(connector, edi, ewb, "https://iap.example.com/credits", log)
}
