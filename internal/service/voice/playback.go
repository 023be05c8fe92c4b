package voice

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandevgo/parley/pkg/chunk"
	"github.com/sandevgo/parley/pkg/conv"
	"github.com/sandevgo/parley/pkg/log"
)

const defaultFragmentTokens = 60

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Player interface {
	Play(ctx context.Context, audio []byte) error
}

type ControllerOption func(*Controller)

func WithFillers(s FillerStrategy) ControllerOption {
	return func(c *Controller) { c.fillers = s }
}

func WithRand(r *rand.Rand) ControllerOption {
	return func(c *Controller) { c.rnd = r }
}

func WithMaxFragmentTokens(n int) ControllerOption {
	return func(c *Controller) { c.maxTokens = n }
}

// Controller speaks replies one fragment at a time. A new Speak or a Stop
// supersedes whatever is playing, and fragments of a superseded reply never
// start.
type Controller struct {
	synth     Synthesizer
	player    Player
	fillers   FillerStrategy
	maxTokens int

	rndMu sync.Mutex
	rnd   *rand.Rand

	// speakMu serializes Speak and Stop.
	speakMu    sync.Mutex
	generation atomic.Uint64
	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewController(synth Synthesizer, player Player, opts ...ControllerOption) *Controller {
	c := &Controller{
		synth:     synth,
		player:    player,
		fillers:   NoFillers,
		maxTokens: defaultFragmentTokens,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Speak stops the current playback and starts playing text in the background.
func (c *Controller) Speak(ctx context.Context, text string) {
	c.speakMu.Lock()
	defer c.speakMu.Unlock()

	c.stop()

	plan := c.plan(text)
	if len(plan) == 0 {
		return
	}

	gen := c.generation.Add(1)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel, c.done = cancel, done
	c.mu.Unlock()

	go c.play(runCtx, gen, plan, done)
}

// Stop cancels the fragment in flight, drops the queued ones and returns once
// the playback goroutine has exited.
func (c *Controller) Stop() {
	c.speakMu.Lock()
	defer c.speakMu.Unlock()
	c.stop()
}

// Wait blocks until the current reply has finished or been stopped.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (c *Controller) stop() {
	c.generation.Add(1)

	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// plan splits text into spoken fragments with fillers between them.
func (c *Controller) plan(text string) []string {
	fragments := chunk.Sentences(conv.PlainText(text), c.maxTokens)

	plan := make([]string, 0, len(fragments))
	for i, fragment := range fragments {
		if i > 0 {
			if filler, ok := c.fillers(i, c.draw()); ok {
				plan = append(plan, filler)
			}
		}
		plan = append(plan, fragment)
	}
	return plan
}

func (c *Controller) draw() float64 {
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.rnd.Float64()
}

func (c *Controller) stale(ctx context.Context, gen uint64) bool {
	return ctx.Err() != nil || c.generation.Load() != gen
}

func (c *Controller) play(ctx context.Context, gen uint64, plan []string, done chan struct{}) {
	defer close(done)
	logger := log.FromCtx(ctx)

	for i, fragment := range plan {
		if c.stale(ctx, gen) {
			return
		}

		audio, err := c.synth.Synthesize(ctx, fragment)
		if err != nil {
			if c.stale(ctx, gen) {
				return
			}
			logger.Warn().Err(err).Int("fragment", i).Msg("synthesis failed, skipping fragment")
			continue
		}
		if c.stale(ctx, gen) {
			return
		}

		if err := c.player.Play(ctx, audio); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Int("fragment", i).Msg("playback failed")
		}
	}
}
