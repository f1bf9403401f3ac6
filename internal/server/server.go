// Package server exposes the frame pipeline over HTTP: a one-shot
// recognition endpoint, a WebSocket frame stream and Prometheus
// metrics. One frame is processed at a time, matching the pipeline's
// single-frame contract.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vaultlens/vaultlens/internal/frame"
)

// Config holds server settings.
type Config struct {
	Host        string
	Port        int
	MaxUploadMB int
	TimeoutSec  int
}

// Server serves frame recognition over HTTP and WebSocket.
type Server struct {
	cfg      Config
	pipeline *frame.Pipeline
	logger   *slog.Logger
	httpSrv  *http.Server

	// Serializes ProcessFrame; the pipeline holds per-call state only,
	// but the engine session should not run concurrent inferences.
	mu sync.Mutex
}

// TokenResponse is the JSON result for one frame.
type TokenResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Clipped    bool    `json:"clipped"`
	Found      bool    `json:"found"`
}

// New creates a server around an initialized pipeline.
func New(cfg Config, pipeline *frame.Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, pipeline: pipeline, logger: logger}
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/recognize", s.handleRecognize)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.withRequestMetrics(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", addr))
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	}
}

func (s *Server) processOne(img image.Image, transport string) TokenResponse {
	start := time.Now()
	s.mu.Lock()
	res := s.pipeline.ProcessFrame(img)
	s.mu.Unlock()
	frameProcessingDuration.WithLabelValues(transport).Observe(time.Since(start).Seconds())

	if res.Text == "" {
		frameRequestsTotal.WithLabelValues(transport, "empty").Inc()
		return TokenResponse{Found: false}
	}
	frameRequestsTotal.WithLabelValues(transport, "token").Inc()
	tokenConfidence.Observe(res.Confidence)
	return TokenResponse{
		Text:       res.Text,
		Confidence: res.Confidence,
		Clipped:    res.Clipped,
		Found:      true,
	}
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	maxBytes := int64(s.cfg.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	uploadSizeBytes.Observe(float64(buf.Len()))

	img, _, err := image.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		frameRequestsTotal.WithLabelValues("http", "decode_error").Inc()
		http.Error(w, "decode image: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp := s.processOne(img, "http")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("write response failed", slog.Any("error", err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
	})
}
