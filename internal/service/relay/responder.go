package relay

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/internal/service/memory"
	"github.com/sandevgo/parley/pkg/log"
)

// Model is the language model client as seen by the relay.
type Model interface {
	Stream(ctx context.Context, history []core.Turn, directive string) <-chan core.Fragment
	Generate(ctx context.Context, history []core.Turn, directive string) string
	Embed(ctx context.Context, text string) []float32
}

// Responder runs one response cycle: record the user turn, enrich it with
// sentiment and memories, stream the model reply and record it.
type Responder struct {
	model      Model
	classifier core.SentimentClassifier
	store      *memory.Store
	directive  *memory.Directive
	metrics    *metrics
}

func NewResponder(model Model, classifier core.SentimentClassifier, store *memory.Store, directive *memory.Directive) *Responder {
	return &Responder{
		model:      model,
		classifier: classifier,
		store:      store,
		directive:  directive,
		metrics:    newMetrics(noopMeter()),
	}
}

// Respond appends text as a user turn and streams the reply through emit, one
// call per non-empty fragment. On success the concatenated reply is appended
// as a model turn and returned. A panic inside the cycle is returned as
// ErrInternal; the user turn stays in the history either way.
func (r *Responder) Respond(ctx context.Context, sess *Session, text string, emit func(string) error) (reply string, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.FromCtx(ctx).Error().
				Interface("panic", p).
				Str("stack", string(debug.Stack())).
				Msg("response cycle panicked")
			reply, err = "", fmt.Errorf("%w: %v", ErrInternal, p)
		}
	}()

	if err := sess.Append(core.Turn{Role: core.RoleUser, Content: text}); err != nil {
		return "", err
	}
	history := sess.History()

	sentiment, memories := r.enrich(ctx, sess.OwnerID(), text)

	directive, err := r.directive.Render(sentiment, memories)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	ended := false
	for frag := range r.model.Stream(ctx, history, directive) {
		if frag.End {
			ended = true
			break
		}
		if frag.Text == "" {
			continue
		}
		sb.WriteString(frag.Text)
		if err := emit(frag.Text); err != nil {
			return "", fmt.Errorf("emit: %w", err)
		}
	}
	if !ended {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: reply stream ended early", ErrInternal)
	}

	reply = sb.String()
	if err := sess.Append(core.Turn{Role: core.RoleModel, Content: reply}); err != nil {
		return "", err
	}
	return reply, nil
}

// enrich gathers the sentiment of text and the owner's related memories
// concurrently. Both degrade to empty values on failure.
func (r *Responder) enrich(ctx context.Context, ownerID, text string) (core.Sentiment, []string) {
	logger := log.FromCtx(ctx)

	var (
		wg        sync.WaitGroup
		sentiment core.Sentiment
		memories  []string
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer r.recoverStep(ctx, "sentiment")
		if r.classifier == nil {
			return
		}
		start := time.Now()
		s, err := r.classifier.Classify(ctx, text)
		if err != nil {
			logger.Warn().Err(err).Msg("sentiment unavailable")
			r.metrics.degrade(ctx, "sentiment")
			return
		}
		sentiment = s
		logger.Debug().Str("emotion", s.Label).Float64("score", s.Score).Dur("took", time.Since(start)).Msg("sentiment")
	}()

	go func() {
		defer wg.Done()
		defer r.recoverStep(ctx, "memory")
		if r.store == nil || !r.store.Enabled() {
			return
		}
		vec := r.model.Embed(ctx, text)
		if len(vec) == 0 {
			r.metrics.degrade(ctx, "embedding")
			return
		}
		memories = r.store.Query(ctx, vec, ownerID, r.store.Threshold(), r.store.Limit())
		logger.Debug().Int("memories", len(memories)).Msg("memory lookup")
	}()

	wg.Wait()
	return sentiment, memories
}

func (r *Responder) recoverStep(ctx context.Context, step string) {
	if p := recover(); p != nil {
		log.FromCtx(ctx).Error().Interface("panic", p).Str("step", step).Msg("enrichment panicked")
		r.metrics.degrade(ctx, step)
	}
}
