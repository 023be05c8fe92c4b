package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/pkg/chunk"
	"github.com/sandevgo/parley/pkg/log"
	"github.com/sandevgo/parley/pkg/retry"
)

const defaultEmbedMaxTokens = 2048

// Client is the model facade used by the relay. None of its methods fail: a reply
// that cannot be produced becomes the fallback text, and an embedding that cannot
// be produced becomes nil.
type Client struct {
	chat           core.ChatProvider
	embedder       core.Embedder
	retrier        *retry.Retrier
	fallback       string
	embedMaxTokens int
}

type Option func(*Client)

func WithRetrier(r *retry.Retrier) Option {
	return func(c *Client) { c.retrier = r }
}

func WithFallback(text string) Option {
	return func(c *Client) {
		if strings.TrimSpace(text) != "" {
			c.fallback = text
		}
	}
}

func WithEmbedMaxTokens(n int) Option {
	return func(c *Client) { c.embedMaxTokens = n }
}

// NewClient wraps chat and embedder. embedder may be nil, in which case Embed
// always returns nil.
func NewClient(chat core.ChatProvider, embedder core.Embedder, opts ...Option) *Client {
	c := &Client{
		chat:           chat,
		embedder:       embedder,
		retrier:        retry.NewRetrier(retry.NewUpstreamConfig()),
		fallback:       core.FallbackReply,
		embedMaxTokens: defaultEmbedMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Fallback() string {
	return c.fallback
}

// Generate returns the whole reply, or the fallback text when the model fails or
// answers with nothing.
func (c *Client) Generate(ctx context.Context, history []core.Turn, directive string) string {
	var reply string
	err := c.retrier.Do(ctx, func() error {
		text, err := c.chat.Chat(ctx, history, directive)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return ErrEmptyResponse
		}
		reply = text
		return nil
	})
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("generate failed, using fallback")
		return c.fallback
	}
	return reply
}

// Stream delivers the reply as fragments on the returned channel. The channel
// always ends with an End fragment and is then closed, unless ctx is cancelled
// first. If nothing could be produced the fallback text is sent as one fragment.
// Providers without streaming support yield their whole reply as one fragment.
func (c *Client) Stream(ctx context.Context, history []core.Turn, directive string) <-chan core.Fragment {
	out := make(chan core.Fragment)

	go func() {
		defer close(out)

		emitted := false
		send := func(f core.Fragment) bool {
			select {
			case out <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}
		yield := func(text string) error {
			if text == "" {
				return nil
			}
			emitted = true
			if !send(core.Fragment{Text: text}) {
				return ctx.Err()
			}
			return nil
		}

		err := c.retrier.Do(ctx, func() error {
			var err error
			if sp, ok := c.chat.(core.StreamProvider); ok {
				err = sp.ChatStream(ctx, history, directive, yield)
			} else {
				var text string
				text, err = c.chat.Chat(ctx, history, directive)
				if err == nil && strings.TrimSpace(text) != "" {
					err = yield(text)
				}
			}

			switch {
			case err == nil && !emitted:
				return ErrEmptyResponse
			case err != nil && emitted:
				// Text already reached the caller; a retry would repeat it.
				return retry.Permanent(err)
			}
			return err
		})

		if err != nil {
			logger := log.FromCtx(ctx)
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.Debug().Err(err).Msg("stream cancelled")
				return
			}
			logger.Error().Err(err).Bool("partial", emitted).Msg("stream failed")
			if !emitted {
				if !send(core.Fragment{Text: c.fallback, Fallback: true}) {
					return
				}
			}
		}

		send(core.Fragment{End: true})
	}()

	return out
}

// Embed returns the embedding of text, or nil when there is no embedder, the
// text is blank, or the upstream fails. Long inputs are truncated to the
// configured token bound first.
func (c *Client) Embed(ctx context.Context, text string) []float32 {
	if c.embedder == nil {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	text = chunk.Truncate(text, c.embedMaxTokens)

	var vec []float32
	err := c.retrier.Do(ctx, func() error {
		v, err := c.embedder.Embed(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("embedding failed")
		return nil
	}
	return vec
}
