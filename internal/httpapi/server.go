// Package httpapi exposes the reflow pipeline over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"subreflow/internal/config"
	"subreflow/internal/logging"
	"subreflow/internal/metrics"
	"subreflow/internal/pipeline"
	"subreflow/internal/provenance"
	"subreflow/internal/subtitle"
)

// Reflower runs the pipeline for one request.
type Reflower interface {
	Run(ctx context.Context, cues []subtitle.Cue) (pipeline.Result, error)
	StrategyName() string
}

type Server struct {
	cfg     config.Server
	runner  Reflower
	metrics *metrics.Recorder
	logger  *slog.Logger
}

func New(cfg config.Server, runner Reflower, rec *metrics.Recorder, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		runner:  runner,
		metrics: rec,
		logger:  logging.NewComponentLogger(logger, "httpapi"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())
	r.Post("/v1/reflow", s.handleReflow)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Bind,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", logging.String("bind", s.cfg.Bind))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"strategy": s.runner.StrategyName(),
	})
}

type reflowResponse struct {
	RunID      string             `json:"run_id"`
	Format     string             `json:"format"`
	Integrity  integrityResponse  `json:"integrity"`
	Output     string             `json:"output"`
	Provenance []provenance.Entry `json:"provenance"`
}

type integrityResponse struct {
	OK      bool   `json:"ok"`
	Mode    string `json:"mode"`
	Summary string `json:"summary"`
}

// handleReflow reads a subtitle document from the body and answers with the
// reflowed document in the same format. With ?response=json the document and
// its provenance are wrapped in a JSON envelope.
func (s *Server) handleReflow(w http.ResponseWriter, r *http.Request) {
	done := s.metrics.TrackInFlight()
	defer done()

	format, err := subtitle.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unsupported_format", err.Error())
		return
	}

	body := r.Body
	if s.cfg.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	payload, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "read_failed", err.Error())
		return
	}
	cues, err := subtitle.Decode(bytes.NewReader(payload), format)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_subtitle", err.Error())
		return
	}

	ctx := r.Context()
	if timeout := s.cfg.RequestTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := s.runner.Run(ctx, cues)
	if err != nil {
		status, code := http.StatusInternalServerError, "reflow_failed"
		if errors.Is(err, context.DeadlineExceeded) {
			status, code = http.StatusGatewayTimeout, "timeout"
		}
		logging.ErrorWithContext(s.logger, "reflow request failed", "reflow_failed", logging.Error(err))
		respondError(w, status, code, err.Error())
		return
	}

	var out bytes.Buffer
	if err := subtitle.Encode(&out, result.Cues, format); err != nil {
		respondError(w, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}

	w.Header().Set("X-Run-ID", result.RunID)
	w.Header().Set("X-Integrity", integrityHeader(result.Integrity.OK))
	if !result.Integrity.OK {
		w.Header().Set("X-Integrity-Detail", result.Integrity.Summary())
	}

	if strings.EqualFold(r.URL.Query().Get("response"), "json") {
		respondJSON(w, http.StatusOK, reflowResponse{
			RunID:  result.RunID,
			Format: string(format),
			Integrity: integrityResponse{
				OK:      result.Integrity.OK,
				Mode:    string(result.Integrity.Mode),
				Summary: result.Integrity.Summary(),
			},
			Output:     out.String(),
			Provenance: result.Provenance.Entries(),
		})
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Bytes())
}

func integrityHeader(ok bool) string {
	if ok {
		return "ok"
	}
	return "mismatch"
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Duration("elapsed", time.Since(started)),
		)
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
