// Package api exposes the materialized feed view over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/edgeflare/feedview/pkg/feed"
	"github.com/edgeflare/feedview/pkg/httputil"
	mw "github.com/edgeflare/feedview/pkg/httputil/middleware"
	"github.com/edgeflare/feedview/pkg/userdir"
	"go.uber.org/zap"
)

// ViewerHeader carries the requesting user's id for per-viewer feed annotation.
const ViewerHeader = "X-Viewer-Id"

// ReadyChecker reports whether the view has converged with the event backlog.
type ReadyChecker interface {
	Ready() bool
}

// Server serves feed snapshots and admin operations over HTTP.
type Server struct {
	query  *feed.Query
	store  *feed.Store
	users  *userdir.Cache
	ready  ReadyChecker
	logger *zap.Logger
	router *httputil.Router
}

// NewServer wires the feed query layer into an HTTP router.
func NewServer(store *feed.Store, users *userdir.Cache, ready ReadyChecker, logger *zap.Logger) *Server {
	s := &Server{
		query:  feed.NewQuery(store),
		store:  store,
		users:  users,
		ready:  ready,
		logger: logger,
	}

	r := httputil.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.LoggerWithOptions(&mw.LoggerOptions{Logger: logger}))
	r.Use(mw.CORSWithOptions(nil))

	r.Handle("GET /feed", http.HandlerFunc(s.handleFeed))
	r.Handle("POST /feed/admin/clear-cache", http.HandlerFunc(s.handleClearCache))
	r.Handle("GET /healthz", http.HandlerFunc(s.handleHealthz))
	r.Handle("GET /readyz", http.HandlerFunc(s.handleReadyz))

	s.router = r
	return s
}

// Handler returns the server's HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router.Handler()
}

// ListenAndServe starts the HTTP listener on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting feed API server", zap.String("addr", addr))
	return s.router.ListenAndServe(addr)
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.router.Shutdown(ctx)
}

// handleFeed returns the full feed snapshot, newest first. When a viewer
// id is supplied via the X-Viewer-Id header or the viewer query parameter,
// each item is annotated with whether that viewer has liked it.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	viewerID := r.Header.Get(ViewerHeader)
	if viewerID == "" {
		viewerID = r.URL.Query().Get("viewer")
	}

	items := s.query.GetFeed(viewerID)
	httputil.JSON(w, http.StatusOK, items)
}

// handleClearCache empties the feed view and the user directory in one
// operation. The consumer keeps running, so the view repopulates from
// whatever events arrive afterwards.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.store.Clear()
	s.users.Clear()
	s.logger.Info("cleared feed view and user directory",
		zap.String("remote_addr", r.RemoteAddr))
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "ok")
}

// handleReadyz reports 503 until the replay gate has observed a quiet
// window, so load balancers do not route reads to a half-built view.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if s.ready == nil || !s.ready.Ready() {
		httputil.Error(w, http.StatusServiceUnavailable, "replaying event backlog")
		return
	}
	httputil.Text(w, http.StatusOK, "ready")
}
