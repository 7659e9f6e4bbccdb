package server

import (
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/stoker/internal/clock"
	"github.com/loykin/stoker/internal/identity"
	"github.com/loykin/stoker/internal/metrics"
)

// Router provides the HTTP surface of a worker.
// Endpoints:
//
//	GET  {basePath}/healthz     liveness probe used by the client readiness poll
//	GET  {basePath}/status      worker fingerprint, uptime and CPU usage
//	POST {basePath}/shutdown    asks the worker to stop
//	GET  {basePath}/metrics     Prometheus metrics
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	basePath  string
	workspace string
	fp        identity.Fingerprint
	startMono int64

	// shutdown is invoked once when POST /shutdown is accepted.
	shutdown func()
	// activity, when set, is invoked on every request. The serve loop uses
	// it to reset the idle timeout.
	activity func()
}

// NewRouter constructs a Router for the worker identified by fp serving the
// given workspace. shutdown must be non-nil.
func NewRouter(basePath, workspace string, fp identity.Fingerprint, shutdown func()) *Router {
	return &Router{
		basePath:  sanitizeBase(basePath),
		workspace: workspace,
		fp:        fp,
		startMono: clock.MonotonicMillis(),
		shutdown:  shutdown,
	}
}

// OnActivity registers a callback invoked on every request. Must be called
// before Handler.
func (r *Router) OnActivity(fn func()) { r.activity = fn }

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	if r.activity != nil {
		fn := r.activity
		g.Use(func(c *gin.Context) {
			fn()
			c.Next()
		})
	}
	group := g.Group(r.basePath)
	group.GET("/healthz", r.handleHealthz)
	group.GET("/status", r.handleStatus)
	group.POST("/shutdown", r.handleShutdown)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server using this router. addr may end
// in ":0" to bind an ephemeral port; the address actually bound is returned
// so the worker can publish it.
func NewServer(addr string, r *Router) (*http.Server, string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", err
	}
	server := &http.Server{
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.Serve(ln) }()
	return server, ln.Addr().String(), nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type statusResp struct {
	Workspace  string `json:"workspace"`
	PID        int    `json:"pid"`
	StartToken int64  `json:"start_token"`
	UptimeMS   int64  `json:"uptime_ms"`
	CPUMS      int64  `json:"cpu_ms"`
}

func (r *Router) handleHealthz(c *gin.Context) {
	metrics.IncRequest("healthz")
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	metrics.IncRequest("status")
	writeJSON(c, http.StatusOK, statusResp{
		Workspace:  r.workspace,
		PID:        r.fp.PID,
		StartToken: r.fp.StartToken,
		UptimeMS:   clock.MonotonicMillis() - r.startMono,
		CPUMS:      clock.ProcessCPUMillis(),
	})
}

func (r *Router) handleShutdown(c *gin.Context) {
	metrics.IncRequest("shutdown")
	if r.shutdown == nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: "shutdown not wired"})
		return
	}
	// Reply before the listener goes away.
	writeJSON(c, http.StatusOK, okResp{OK: true})
	go r.shutdown()
}
