// Package httpapi serves the relay websocket and the speech and generation
// endpoints.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sandevgo/parley/internal/config"
	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/internal/service/relay"
	"github.com/sandevgo/parley/pkg/log"
	"github.com/sandevgo/parley/pkg/telemetry"
)

const (
	maxBodyBytes      = 1 << 20
	readHeaderTimeout = 10 * time.Second
)

// Generator produces a one-shot reply. It never fails; Fallback tells a real
// reply from the canned one.
type Generator interface {
	Generate(ctx context.Context, history []core.Turn, directive string) string
	Fallback() string
}

type Server struct {
	srv      *http.Server
	upgrader websocket.Upgrader

	relay     *relay.Handler
	speech    core.SpeechSynthesizer
	generator Generator
	directive string
	metrics   http.Handler
	counters  *metrics
}

type Option func(*Server)

// WithMetrics exposes h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func NewServer(
	cfg *config.AppConfig,
	relayHandler *relay.Handler,
	speech core.SpeechSynthesizer,
	generator Generator,
	directive string,
	opts ...Option,
) *Server {
	s := &Server{
		relay:     relayHandler,
		speech:    speech,
		generator: generator,
		directive: directive,
		counters:  newMetrics(telemetry.Meter()),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("POST /api/speak", s.handleSpeak)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	log.FromCtx(ctx).Info().Str("addr", s.srv.Addr).Msg("starting http server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then drains relay sessions so every
// conversation gets its summary.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	if rerr := s.relay.Shutdown(ctx); rerr != nil {
		log.FromCtx(ctx).Warn().Err(rerr).Int("sessions", s.relay.Sessions()).Msg("relay sessions did not drain")
		if err == nil {
			err = rerr
		}
	}
	return err
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.FromCtx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.relay.ServeConn(r.Context(), ws)
}

// checkOrigin accepts any origin when none are configured.
func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
