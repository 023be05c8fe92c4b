package relay

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/pkg/log"
	"github.com/sandevgo/parley/pkg/telemetry"
)

const (
	defaultPingInterval = 20 * time.Second
	defaultWriteTimeout = 5 * time.Second
	defaultQueueSize    = 8
	outboundBuffer      = 64
)

// Summarizer stores a memory of a finished conversation.
type Summarizer interface {
	Summarize(ctx context.Context, ownerID string, history []core.Turn)
}

// Handler serves relay sessions over upgraded websocket connections.
type Handler struct {
	cfg        core.RelayConfig
	responder  *Responder
	summarizer Summarizer
	registry   *Registry
	metrics    *metrics
}

func NewHandler(cfg core.RelayConfig, responder *Responder, summarizer Summarizer) *Handler {
	m := newMetrics(telemetry.Meter())
	responder.metrics = m
	return &Handler{
		cfg:        cfg,
		responder:  responder,
		summarizer: summarizer,
		registry:   NewRegistry(),
		metrics:    m,
	}
}

func (h *Handler) Sessions() int {
	return h.registry.Count()
}

// ServeConn runs one session on ws until the client ends it, disconnects or
// ctx is cancelled. The conversation is summarized once before ws is closed.
func (h *Handler) ServeConn(ctx context.Context, ws *websocket.Conn) {
	sess := NewSession(uuid.NewString())

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	connCtx = log.With(connCtx, "session", sess.ID)
	logger := log.FromCtx(connCtx)

	unregister := h.registry.Register(sess.ID, cancel)
	defer unregister()

	h.metrics.sessionOpened(connCtx)
	defer h.metrics.sessionClosed(context.WithoutCancel(connCtx))

	logger.Info().Str("remote", ws.RemoteAddr().String()).Msg("session opened")

	c := newConn(ws, sess, h)
	defer func() {
		c.close()
		logger.Info().Str("owner", sess.OwnerID()).Int("turns", len(sess.History())).Msg("session closed")
	}()
	c.run(connCtx)

	sess.Finish(func(ownerID string, history []core.Turn) {
		h.summarize(connCtx, ownerID, history)
	})
}

// summarize hands the history to the summarizer. A panic there is logged and
// the session still closes normally.
func (h *Handler) summarize(ctx context.Context, ownerID string, history []core.Turn) {
	defer func() {
		if r := recover(); r != nil {
			log.FromCtx(ctx).Error().Interface("panic", r).Msg("summary panicked")
		}
	}()
	h.summarizer.Summarize(ctx, ownerID, history)
}

// Shutdown cancels every session and waits for them to finish summarizing.
func (h *Handler) Shutdown(ctx context.Context) error {
	n := h.registry.CancelAll()
	if n > 0 {
		log.FromCtx(ctx).Info().Int("sessions", n).Msg("draining relay sessions")
	}
	if !h.registry.Wait(ctx) {
		return ctx.Err()
	}
	return nil
}

func (h *Handler) pingInterval() time.Duration {
	if d := h.cfg.GetPingInterval(); d > 0 {
		return d
	}
	return defaultPingInterval
}

func (h *Handler) writeTimeout() time.Duration {
	if d := h.cfg.GetWriteTimeout(); d > 0 {
		return d
	}
	return defaultWriteTimeout
}

func (h *Handler) queueSize() int {
	if n := h.cfg.GetQueueSize(); n > 0 {
		return n
	}
	return defaultQueueSize
}
