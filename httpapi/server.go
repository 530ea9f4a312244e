// Package httpapi exposes the solver over HTTP.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ByLCY/linkage/record"
	"github.com/ByLCY/linkage/scissor"
)

const (
	defaultMaxBody  = 1 << 20
	defaultMaxSteps = 1000
)

// Options configures the handler.
type Options struct {
	// Solve holds the defaults; a request may override the mode only.
	Solve        scissor.SolveOptions
	MaxBodyBytes int64
	// Registry receives the solver metrics and backs /metrics. Nil creates a private registry.
	Registry *prometheus.Registry
	// HideMetrics keeps collecting but does not mount /metrics.
	HideMetrics bool
	Logger      *slog.Logger
}

// Server implements the HTTP endpoints.
type Server struct {
	opts    Options
	log     *slog.Logger
	metrics *metrics
}

// SolveRequest is the body of POST /v1/solve.
type SolveRequest struct {
	Chain  scissor.Chain `json:"chain"`
	Radius float64       `json:"radius"`
	Angle  float64       `json:"angle"`
	Mode   string        `json:"mode,omitempty"`
}

// EnvelopeRequest is the body of POST /v1/envelope.
type EnvelopeRequest struct {
	Chain scissor.Chain `json:"chain"`
	Angle float64       `json:"angle"`
	Mode  string        `json:"mode,omitempty"`
}

// SweepRequest is the body of POST /v1/sweep.
type SweepRequest struct {
	Chain scissor.Chain `json:"chain"`
	Angle float64       `json:"angle"`
	Steps int           `json:"steps"`
	Mode  string        `json:"mode,omitempty"`
}

// ValidateRequest is the body of POST /v1/validate.
type ValidateRequest struct {
	Chain scissor.Chain `json:"chain"`
}

// ValidateResponse reports the first failing unit, if any.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Index *int   `json:"index,omitempty"`
	Rule  string `json:"rule,omitempty"`
	Error string `json:"error,omitempty"`
}

// ErrorResponse is returned with 4xx statuses.
type ErrorResponse struct {
	Code  scissor.Code `json:"code"`
	Name  string       `json:"name"`
	Error string       `json:"error"`
}

// NewHandler builds the chi router.
func NewHandler(opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		opts:    opts,
		log:     opts.Logger,
		metrics: newMetrics(opts.Registry),
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.log))

	r.Get("/healthz", s.health)
	if !opts.HideMetrics {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/solve", s.solve)
		r.Post("/solve/record", s.solveRecord)
		r.Post("/envelope", s.envelope)
		r.Post("/sweep", s.sweep)
		r.Post("/validate", s.validate)
		r.Get("/chain/default", s.defaultChain)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) solve(w http.ResponseWriter, r *http.Request) {
	var body SolveRequest
	if !s.decode(w, r, &body) {
		return
	}
	opts, err := s.withMode(body.Mode)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	sol, err := s.run(body.Chain, scissor.Actuation{Radius: body.Radius, Angle: body.Angle}, opts)
	if err != nil {
		s.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sol)
}

// solveRecord takes a record-encoded chain and answers with a record-encoded
// result. The result code travels inside the record, so the status is 200
// for every decodable request.
func (s *Server) solveRecord(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	radius, err := strconv.ParseFloat(q.Get("radius"), 64)
	if err != nil {
		s.badRequest(w, r, fmt.Errorf("radius: %w", err))
		return
	}
	angle, err := strconv.ParseFloat(q.Get("angle"), 64)
	if err != nil {
		s.badRequest(w, r, fmt.Errorf("angle: %w", err))
		return
	}
	opts, err := s.withMode(q.Get("mode"))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	chain, err := record.ReadChain(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	var res scissor.Result
	sol, err := s.run(chain, scissor.Actuation{Radius: radius, Angle: angle}, opts)
	if err != nil {
		res = scissor.Result{Code: scissor.CodeOf(err)}
	} else {
		res = sol.Result()
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if err := record.WriteResult(w, res); err != nil {
		s.log.Error("solve/record response write failed", "error", err, "request_id", RequestID(r.Context()))
	}
}

func (s *Server) envelope(w http.ResponseWriter, r *http.Request) {
	var body EnvelopeRequest
	if !s.decode(w, r, &body) {
		return
	}
	opts, err := s.withMode(body.Mode)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	env, err := scissor.ReachEnvelope(body.Chain, body.Angle, opts)
	if err != nil {
		s.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) sweep(w http.ResponseWriter, r *http.Request) {
	var body SweepRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Steps <= 0 || body.Steps > defaultMaxSteps {
		s.badRequest(w, r, fmt.Errorf("steps must be in [1, %d]", defaultMaxSteps))
		return
	}
	opts, err := s.withMode(body.Mode)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	points, err := scissor.Sweep(body.Chain, body.Angle, body.Steps, opts)
	if err != nil {
		s.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	var body ValidateRequest
	if !s.decode(w, r, &body) {
		return
	}
	resp := ValidateResponse{Valid: true}
	if err := scissor.ValidateChain(body.Chain); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
		var ve *scissor.ValidationError
		if errors.As(err, &ve) {
			idx := ve.Index
			resp.Index = &idx
			resp.Rule = ve.Rule.String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) defaultChain(w http.ResponseWriter, r *http.Request) {
	size, err := strconv.ParseUint(r.URL.Query().Get("size"), 10, 32)
	if err != nil {
		s.badRequest(w, r, fmt.Errorf("size: %w", err))
		return
	}
	chain, err := scissor.DefaultChain(uint(size))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, chain)
}

// run calls the solver and records metrics.
func (s *Server) run(chain scissor.Chain, in scissor.Actuation, opts scissor.SolveOptions) (*scissor.Solution, error) {
	start := time.Now()
	sol, err := scissor.Solve(chain, in, opts)
	s.metrics.duration.Observe(time.Since(start).Seconds())
	s.metrics.solves.WithLabelValues(scissor.CodeOf(err).String()).Inc()
	if err == nil {
		s.metrics.iterations.Observe(float64(sol.Iterations))
	}
	return sol, err
}

func (s *Server) withMode(mode string) (scissor.SolveOptions, error) {
	opts := s.opts.Solve
	if mode == "" {
		return opts, nil
	}
	m, err := scissor.ParseAngleMode(mode)
	if err != nil {
		return opts, err
	}
	opts.Mode = m
	return opts, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.badRequest(w, r, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		s.badRequest(w, r, errors.New("invalid request body: trailing data"))
		return false
	}
	return true
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Warn("bad request", "path", r.URL.Path, "error", err, "request_id", RequestID(r.Context()))
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) domainError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Debug("solve rejected", "path", r.URL.Path, "error", err, "request_id", RequestID(r.Context()))
	writeJSON(w, http.StatusUnprocessableEntity, errorBody(err))
}

func errorBody(err error) ErrorResponse {
	code := scissor.CodeOf(err)
	return ErrorResponse{Code: code, Name: code.String(), Error: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
