// Package api exposes map construction over HTTP.
//
// The surface is small: POST a dataset to build a map, GET a stored
// result, and a health probe. Finished maps persist through the session
// store, so results survive restarts and are shared between instances
// when the store is MongoDB.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mkruijt/linkmap/pkg/errors"
	mapio "github.com/mkruijt/linkmap/pkg/io"
	"github.com/mkruijt/linkmap/pkg/pipeline"
	"github.com/mkruijt/linkmap/pkg/session"
)

// Server handles the HTTP API.
type Server struct {
	runner *pipeline.Runner
	store  session.Store
	opts   pipeline.Options
	logger *log.Logger
}

// New creates a server. opts is the option base for every build; the
// request can toggle ripple and seeding on top of it.
func New(runner *pipeline.Runner, store session.Store, opts pipeline.Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, store: store, opts: opts, logger: logger}
}

// Router builds the chi handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1/maps", func(r chi.Router) {
		r.Post("/", s.handleBuild)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleGet)
		r.Delete("/{id}", s.handleDelete)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// buildResponse is the result document for POST and GET.
type buildResponse struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Params    session.Params `json:"params"`
	Summary   sessionSummary `json:"summary"`
	Map       mapio.MapDoc   `json:"map"`
}

type sessionSummary struct {
	Markers        int     `json:"markers"`
	LengthCM       float64 `json:"length_cm"`
	MeanIntervalCM float64 `json:"mean_interval_cm"`
	MaxIntervalCM  float64 `json:"max_interval_cm"`
	MedianRF       float64 `json:"median_rf"`
	LogLik         float64 `json:"log_lik"`
	Warnings       int     `json:"warnings"`
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	data, tab, err := mapio.ReadDataset(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	opts := s.opts
	q := r.URL.Query()
	opts.Ripple = q.Get("ripple") == "true"
	opts.Seed = q.Get("seed") == "true"

	res, err := s.runner.Execute(r.Context(), data, tab, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	sess := session.New(res.DatasetHash, session.Params{
		MapFunc:      opts.MapFunc.String(),
		BatchSize:    opts.BatchSize,
		BatchOverlap: opts.BatchOverlap,
		SizeWindow:   opts.SizeWindow,
		RippleWindow: opts.RippleWindow,
		RippleRule:   opts.RippleRule.String(),
		Tolerance:    opts.Tol,
		Parallel:     opts.Parallel,
	}, res.Map, res.Summary)
	if err := s.store.Put(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("map built", "session", sess.ID, "markers", res.Stats.Markers, "batches", res.Stats.Batches)
	writeJSON(w, http.StatusCreated, toResponse(sess))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sess))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toResponse(sess *session.Session) buildResponse {
	resp := buildResponse{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		Params:    sess.Params,
		Summary: sessionSummary{
			Markers:        sess.Summary.Markers,
			LengthCM:       sess.Summary.LengthCM,
			MeanIntervalCM: sess.Summary.MeanIntervalCM,
			MaxIntervalCM:  sess.Summary.MaxIntervalCM,
			MedianRF:       sess.Summary.MedianRF,
			LogLik:         sess.Summary.LogLik,
			Warnings:       sess.Summary.Warnings,
		},
	}
	if sess.Map != nil {
		resp.Map = mapio.EncodeMap(sess.Map)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps error codes to HTTP statuses, keeping internal detail
// out of responses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidDataset, errors.ErrCodeInvalidInput, errors.ErrCodeInvalidSequence, errors.ErrCodePartition:
		status = http.StatusBadRequest
	case errors.ErrCodeSessionNotFound, errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeMergeConflict:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}
