package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mapmaker/graphcrawler/internal/clock"
	"github.com/mapmaker/graphcrawler/internal/crawler"
	"github.com/mapmaker/graphcrawler/internal/graphinfo"
	"github.com/mapmaker/graphcrawler/internal/id/uuid"
	"github.com/mapmaker/graphcrawler/internal/metrics"
	"github.com/mapmaker/graphcrawler/internal/queue"

	"net/http"
)

// Enqueuer is the subset of *queue.Queue the API depends on, so tests can
// substitute a stub without building a real worker pool.
type Enqueuer interface {
	Enqueue(task crawler.Task) (queue.Admission, error)
}

// InfoReader is the subset of *graphinfo.Updater the API depends on.
type InfoReader interface {
	Get(host string) (graphinfo.GraphInfo, bool)
	All() []graphinfo.GraphInfo
}

// Server wires HTTP handlers to the Task Queue and the Graph Info Updater.
type Server struct {
	router chi.Router
	queue  Enqueuer
	info   InfoReader
	cfg    crawler.Config
	clock  clock.Clock
	logger *zap.Logger
	idGen  *uuid.Generator
}

// NewServer constructs a Server with middleware and routes already wired.
func NewServer(q Enqueuer, info InfoReader, cfg crawler.Config, clk clock.Clock, logger *zap.Logger) *Server {
	s := &Server{
		queue:  q,
		info:   info,
		cfg:    cfg,
		clock:  clk,
		logger: logger,
		idGen:  uuid.New(),
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/queue-website/", s.queueWebsite)
	r.Get("/graphs/all", s.graphsAll)
	r.Get("/graphs/", s.graphByHost)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
