package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mapmaker/graphcrawler/internal/crawler"
	"github.com/mapmaker/graphcrawler/internal/queue"
)

type queueWebsiteRequest struct {
	URL string `json:"url"`
}

// queueWebsite implements POST /queue-website/: admit a bare URL under the
// crawler's configured defaults for depth, request limit, and compressor.
func (s *Server) queueWebsite(w http.ResponseWriter, r *http.Request) {
	var req queueWebsiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "missing url")
		return
	}

	task := crawler.Task{
		URL:          req.URL,
		Compressor:   s.cfg.DefaultCompressor,
		CrawlDepth:   s.cfg.DefaultCrawlDepth,
		RequestLimit: s.cfg.DefaultReqLimit,
		EnqueuedAt:   s.clock.Now(),
	}

	admission, err := s.queue.Enqueue(task)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch admission {
	case queue.Accepted:
		s.writeJSON(w, http.StatusOK, map[string]string{"status": string(admission), "url": req.URL})
	case queue.RejectedDuplicate:
		s.writeJSON(w, http.StatusConflict, map[string]string{"status": string(admission), "url": req.URL})
	case queue.RejectedFull:
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": string(admission), "url": req.URL})
	default:
		s.writeError(w, http.StatusInternalServerError, "unrecognized admission result")
	}
}

// graphsAll implements GET /graphs/all: every host with a cached GraphInfo.
func (s *Server) graphsAll(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"graphs": s.info.All()})
}

// graphByHost implements GET /graphs/?url=<host>.
func (s *Server) graphByHost(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("url")
	if host == "" {
		s.writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	info, ok := s.info.Get(host)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no graph for host")
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write json response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
