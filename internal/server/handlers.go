package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/KaramelBytes/crashinsight/internal/engine"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// writeError maps caller mistakes to 400 and everything else to 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, engine.ErrInvalidInput) {
		status = http.StatusBadRequest
	} else {
		log.Printf("%s %s request_id=%s: %v", r.Method, r.URL.Path, RequestID(r.Context()), err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), RequestID: RequestID(r.Context())})
}

func respond[T any](w http.ResponseWriter, r *http.Request, v T, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", engine.ErrInvalidInput, name, raw)
	}
	return v, nil
}

func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", engine.ErrInvalidInput, name, raw)
	}
	return v, nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	v, err := s.eng.BasicStats()
	respond(w, r, v, err)
}

func (s *Server) handleTimeAnalysis(w http.ResponseWriter, r *http.Request) {
	v, err := s.eng.TimeAnalysis()
	respond(w, r, v, err)
}

func (s *Server) handleSeverityAnalysis(w http.ResponseWriter, r *http.Request) {
	v, err := s.eng.SeverityAnalysis()
	respond(w, r, v, err)
}

func (s *Server) handleLocationAnalysis(w http.ResponseWriter, r *http.Request) {
	v, err := s.eng.LocationAnalysis()
	respond(w, r, v, err)
}

func (s *Server) handleClustering(w http.ResponseWriter, r *http.Request) {
	k, err := queryInt(r, "clusters", s.opt.DefaultClusters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.eng.Clustering(k)
	respond(w, r, v, err)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.opt.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opt.ModelTimeout)
		defer cancel()
	}
	v, err := s.eng.SeverityModel(ctx)
	respond(w, r, v, err)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	support, err := queryFloat(r, "min_support", s.opt.DefaultMinSupport)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.eng.AssociationRules(support)
	respond(w, r, v, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.eng.Health()
	status := http.StatusOK
	if h.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}
