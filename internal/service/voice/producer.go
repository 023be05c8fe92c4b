package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/parley/pkg/log"
)

type EventKind int

const (
	EventStart EventKind = iota
	EventPartial
	EventFinal
	EventEnd
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventPartial:
		return "partial"
	case EventFinal:
		return "final"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one step of recognition. Text is the interim text for partials and
// the segment for finals; Transcript is every final so far joined by spaces.
type Event struct {
	Kind       EventKind
	Text       string
	Transcript string
	Err        error
}

const (
	defaultRestartDelay = 500 * time.Millisecond
	eventBuffer         = 32
)

// Producer runs a recognizer, restarts it when it stops on its own and keeps
// the running transcript of final results.
type Producer struct {
	rec          Recognizer
	restartDelay time.Duration
	events       chan Event

	mu     sync.Mutex
	finals []string
	parent context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewProducer(rec Recognizer, restartDelay time.Duration) *Producer {
	if restartDelay <= 0 {
		restartDelay = defaultRestartDelay
	}
	return &Producer{
		rec:          rec,
		restartDelay: restartDelay,
		events:       make(chan Event, eventBuffer),
	}
}

func (p *Producer) Events() <-chan Event {
	return p.events
}

// Start begins recognition under ctx. It is a no-op while already running.
func (p *Producer) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}
	p.parent = ctx

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	go p.loop(runCtx, done)
}

// Pause stops recognition without an automatic restart and waits for the
// recognizer to return.
func (p *Producer) Pause() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Resume restarts recognition after Pause under the context given to Start.
func (p *Producer) Resume() {
	p.mu.Lock()
	parent := p.parent
	p.mu.Unlock()

	if parent == nil {
		return
	}
	p.Start(parent)
}

func (p *Producer) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Producer) Transcript() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Join(p.finals, " ")
}

func (p *Producer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finals = nil
}

func (p *Producer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	logger := log.FromCtx(ctx)

	for {
		p.emit(ctx, Event{Kind: EventStart})
		err := p.recognizeOnce(ctx)

		if ctx.Err() != nil {
			p.emitNow(Event{Kind: EventEnd, Err: ctx.Err()})
			return
		}
		if err != nil && !errors.Is(err, ErrInputClosed) {
			logger.Warn().Err(err).Msg("recognizer failed")
			p.emit(ctx, Event{Kind: EventError, Err: err})
		}
		p.emit(ctx, Event{Kind: EventEnd, Err: err})

		if errors.Is(err, ErrInputClosed) {
			p.mu.Lock()
			if p.done == done {
				p.cancel()
				p.cancel, p.done = nil, nil
			}
			p.mu.Unlock()
			return
		}

		logger.Debug().Dur("delay", p.restartDelay).Msg("recognizer stopped, restarting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.restartDelay):
		}
	}
}

func (p *Producer) recognizeOnce(ctx context.Context) error {
	results := make(chan Result)
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.rec.Recognize(ctx, results)
	}()

	for {
		select {
		case res := <-results:
			p.handle(ctx, res)
		case err := <-errCh:
			return err
		}
	}
}

func (p *Producer) handle(ctx context.Context, res Result) {
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return
	}
	if !res.Final {
		p.emit(ctx, Event{Kind: EventPartial, Text: text})
		return
	}

	p.mu.Lock()
	p.finals = append(p.finals, text)
	transcript := strings.Join(p.finals, " ")
	p.mu.Unlock()

	p.emit(ctx, Event{Kind: EventFinal, Text: text, Transcript: transcript})
}

func (p *Producer) emit(ctx context.Context, ev Event) {
	select {
	case p.events <- ev:
	case <-ctx.Done():
	}
}

// emitNow drops the event when nobody is listening.
func (p *Producer) emitNow(ev Event) {
	select {
	case p.events <- ev:
	default:
	}
}
