package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/pkg/log"
)

var errWriterClosed = errors.New("writer closed")

type inboundFrame struct {
	data []byte
}

// conn moves frames for one session. A reader goroutine fills a bounded queue,
// the caller of run processes it in order, and a writer goroutine owns every
// socket write including pings.
type conn struct {
	ws   *websocket.Conn
	sess *Session
	h    *Handler

	inbound  chan inboundFrame
	outbound chan []byte

	stopWriter chan struct{}
	writerDone chan struct{}
	readerDone chan struct{}
	closeOnce  sync.Once
}

func newConn(ws *websocket.Conn, sess *Session, h *Handler) *conn {
	return &conn{
		ws:         ws,
		sess:       sess,
		h:          h,
		inbound:    make(chan inboundFrame, h.queueSize()),
		outbound:   make(chan []byte, outboundBuffer),
		stopWriter: make(chan struct{}),
		writerDone: make(chan struct{}),
		readerDone: make(chan struct{}),
	}
}

func (c *conn) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readTimeout := 2*c.h.pingInterval() + c.h.writeTimeout()
	if limit := c.h.cfg.GetReadLimit(); limit > 0 {
		c.ws.SetReadLimit(limit)
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go c.writeLoop(ctx, cancel)
	go c.readLoop(ctx, cancel, readTimeout)

	c.process(ctx)
}

// close flushes pending frames, says goodbye with a normal closure and waits
// for both goroutines.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.stopWriter)
		<-c.writerDone
		<-c.readerDone
	})
}

func (c *conn) readLoop(ctx context.Context, cancel context.CancelFunc, readTimeout time.Duration) {
	defer close(c.readerDone)
	defer close(c.inbound)
	logger := log.FromCtx(ctx)

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("connection lost")
			} else {
				logger.Debug().Err(err).Msg("reader stopped")
			}
			// A client that hung up mid-cycle does not wait for the reply.
			if !c.sess.Closed() {
				cancel()
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))

		if messageType != websocket.TextMessage {
			c.reject(ctx, "binary", "binary frames are not supported")
			continue
		}
		if c.sess.Closed() {
			c.reject(ctx, "closed", ErrSessionClosed.Error())
			continue
		}

		select {
		case c.inbound <- inboundFrame{data: data}:
		default:
			c.reject(ctx, "queue_full", ErrQueueFull.Error())
		}
	}
}

func (c *conn) reject(ctx context.Context, reason, msg string) {
	c.h.metrics.reject(ctx, reason)
	_ = c.send(ctx, EncodeError(msg))
}

func (c *conn) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	defer close(c.writerDone)
	defer c.ws.Close()

	writeTimeout := c.h.writeTimeout()
	ticker := time.NewTicker(c.h.pingInterval())
	defer ticker.Stop()

	write := func(data []byte) error {
		if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return err
		}
		return c.ws.WriteMessage(websocket.TextMessage, data)
	}

	for {
		select {
		case data := <-c.outbound:
			if err := write(data); err != nil {
				log.FromCtx(ctx).Debug().Err(err).Msg("write failed")
				cancel()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				log.FromCtx(ctx).Debug().Err(err).Msg("ping failed")
				cancel()
				return
			}
		case <-c.stopWriter:
			for {
				select {
				case data := <-c.outbound:
					if err := write(data); err != nil {
						return
					}
				default:
					_ = c.ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(writeTimeout))
					return
				}
			}
		}
	}
}

// send queues one frame for the writer.
func (c *conn) send(ctx context.Context, data []byte) error {
	select {
	case c.outbound <- data:
		return nil
	case <-c.writerDone:
		return errWriterClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *conn) process(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-c.inbound:
			if !ok {
				return
			}
			if done := c.handle(ctx, frame.data); done {
				c.rejectQueued(ctx)
				return
			}
		}
	}
}

// rejectQueued answers frames that were already waiting when the session ended.
func (c *conn) rejectQueued(ctx context.Context) {
	for {
		select {
		case _, ok := <-c.inbound:
			if !ok {
				return
			}
			c.reject(ctx, "closed", ErrSessionClosed.Error())
		default:
			return
		}
	}
}

func (c *conn) handle(ctx context.Context, data []byte) (done bool) {
	logger := log.FromCtx(ctx)

	msg, err := DecodeClientMessage(data)
	if err != nil {
		logger.Debug().Err(err).Msg("invalid frame")
		c.reject(ctx, "invalid", err.Error())
		return false
	}

	switch m := msg.(type) {
	case ClientInit:
		if err := c.sess.Init(m.User); err != nil {
			c.reject(ctx, "init", err.Error())
			return false
		}
		logger.Info().Str("owner", m.User.ID).Msg("session initialized")
	case ClientContinue:
		c.respond(ctx, m)
	case ClientEnd:
		if err := c.sess.End(); err != nil {
			c.reject(ctx, "closed", err.Error())
		}
		logger.Debug().Msg("session ended by client")
		return true
	}
	return false
}

func (c *conn) respond(ctx context.Context, m ClientContinue) {
	logger := log.FromCtx(ctx)

	if c.sess.Closed() {
		c.reject(ctx, "closed", ErrSessionClosed.Error())
		return
	}

	cycleCtx := ctx
	if timeout := c.h.cfg.GetCycleTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stream := m.Streaming()
	emit := func(text string) error {
		if !stream {
			return nil
		}
		return c.send(cycleCtx, EncodePartial(text))
	}

	start := time.Now()
	reply, err := c.h.responder.Respond(cycleCtx, c.sess, m.Message, emit)
	if err != nil {
		c.h.metrics.cycle(ctx, "error", time.Since(start))
		logger.Error().Err(err).Msg("response cycle failed")
		_ = c.send(ctx, EncodeError(clientError(err)))
		return
	}

	if stream {
		err = c.send(ctx, EncodePartial(core.EndOfReply))
	} else {
		err = c.send(ctx, EncodeReply(reply))
	}
	if err != nil {
		logger.Debug().Err(err).Msg("reply not delivered")
	}

	c.h.metrics.cycle(ctx, "ok", time.Since(start))
	logger.Debug().Int("chars", len(reply)).Dur("took", time.Since(start)).Msg("reply sent")
}

func clientError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "reply timed out"
	case errors.Is(err, ErrSessionClosed):
		return ErrSessionClosed.Error()
	default:
		return ErrInternal.Error()
	}
}
