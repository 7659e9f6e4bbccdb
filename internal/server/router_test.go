package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loykin/stoker/internal/identity"
)

func testRouter(t *testing.T, shutdown func()) *Router {
	t.Helper()
	if shutdown == nil {
		shutdown = func() {}
	}
	fp := identity.Fingerprint{PID: 4242, StartToken: 123456789}
	return NewRouter("", "/work/project", fp, shutdown)
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(testRouter(t, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body okResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK {
		t.Fatal("expected ok=true")
	}
}

func TestStatusReportsFingerprint(t *testing.T) {
	srv := httptest.NewServer(testRouter(t, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var st statusResp
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Workspace != "/work/project" {
		t.Errorf("workspace = %q", st.Workspace)
	}
	if st.PID != 4242 || st.StartToken != 123456789 {
		t.Errorf("fingerprint = %d/%d", st.PID, st.StartToken)
	}
	if st.UptimeMS < 0 {
		t.Errorf("uptime_ms = %d, want >= 0", st.UptimeMS)
	}
}

func TestShutdownInvokesCallback(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(testRouter(t, func() { close(done) }).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/shutdown", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /shutdown: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback not invoked")
	}
}

func TestActivityCallbackFires(t *testing.T) {
	var hits atomic.Int64
	r := testRouter(t, nil)
	r.OnActivity(func() { hits.Add(1) })
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			t.Fatalf("GET /healthz: %v", err)
		}
		_ = resp.Body.Close()
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("activity hits = %d, want 3", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httptest.NewServer(testRouter(t, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSanitizeBase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/", ""},
		{"api", "/api"},
		{"/api/", "/api"},
		{"  /api  ", "/api"},
	}
	for _, tt := range tests {
		if got := sanitizeBase(tt.in); got != tt.want {
			t.Errorf("sanitizeBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewServerEphemeralPort(t *testing.T) {
	srv, addr, err := NewServer("127.0.0.1:0", testRouter(t, nil))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer func() { _ = srv.Close() }()
	if addr == "" || addr == "127.0.0.1:0" {
		t.Fatalf("addr = %q, want bound address", addr)
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET bound addr: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
