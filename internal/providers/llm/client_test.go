package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChat struct {
	calls   atomic.Int32
	replies []string
	err     error
}

func (s *stubChat) Chat(ctx context.Context, history []core.Turn, directive string) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return strings.Join(s.replies, ""), nil
}

type stubStream struct {
	stubChat
	failAfter int
}

func (s *stubStream) ChatStream(ctx context.Context, history []core.Turn, directive string, yield func(string) error) error {
	s.calls.Add(1)
	for i, r := range s.replies {
		if s.failAfter > 0 && i == s.failAfter {
			return errors.New("connection reset")
		}
		if err := yield(r); err != nil {
			return err
		}
	}
	return s.err
}

type stubEmbedder struct {
	calls atomic.Int32
	input string
	vec   []float32
	err   error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls.Add(1)
	s.input = text
	return s.vec, s.err
}

func fastRetrier() *retry.Retrier {
	return retry.NewRetrier(&retry.Config{
		MaxRetries:    2,
		BackoffFactor: 1,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
	})
}

func collect(t *testing.T, ch <-chan core.Fragment) []core.Fragment {
	t.Helper()
	var out []core.Fragment
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, f)
		case <-timeout:
			t.Fatal("stream did not finish")
		}
	}
}

func TestClient_Generate(t *testing.T) {
	tests := []struct {
		name      string
		chat      *stubChat
		want      string
		wantCalls int32
	}{
		{name: "reply", chat: &stubChat{replies: []string{"All good."}}, want: "All good.", wantCalls: 1},
		{name: "error falls back", chat: &stubChat{err: errors.New("boom")}, want: "fallback", wantCalls: 3},
		{name: "permanent error not retried", chat: &stubChat{err: retry.Permanent(errors.New("bad key"))}, want: "fallback", wantCalls: 1},
		{name: "blank reply falls back", chat: &stubChat{replies: []string{"  "}}, want: "fallback", wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.chat, nil, WithRetrier(fastRetrier()), WithFallback("fallback"))
			got := c.Generate(context.Background(), nil, "")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, tt.chat.calls.Load())
		})
	}
}

func TestClient_StreamFragments(t *testing.T) {
	p := &stubStream{stubChat: stubChat{replies: []string{"Hello", " there", "."}}}
	c := NewClient(p, nil, WithRetrier(fastRetrier()))

	got := collect(t, c.Stream(context.Background(), nil, ""))
	assert.Equal(t, []core.Fragment{
		{Text: "Hello"},
		{Text: " there"},
		{Text: "."},
		{End: true},
	}, got)
}

func TestClient_StreamNonStreamingProvider(t *testing.T) {
	c := NewClient(&stubChat{replies: []string{"Whole reply."}}, nil, WithRetrier(fastRetrier()))

	got := collect(t, c.Stream(context.Background(), nil, ""))
	assert.Equal(t, []core.Fragment{{Text: "Whole reply."}, {End: true}}, got)
}

func TestClient_StreamFallback(t *testing.T) {
	p := &stubStream{stubChat: stubChat{err: errors.New("unavailable")}}
	c := NewClient(p, nil, WithRetrier(fastRetrier()), WithFallback("try again"))

	got := collect(t, c.Stream(context.Background(), nil, ""))
	assert.Equal(t, []core.Fragment{{Text: "try again", Fallback: true}, {End: true}}, got)
	assert.Equal(t, int32(3), p.calls.Load())
}

func TestClient_StreamFailureAfterTextIsNotRetried(t *testing.T) {
	p := &stubStream{stubChat: stubChat{replies: []string{"Part one", "part two"}}, failAfter: 1}
	c := NewClient(p, nil, WithRetrier(fastRetrier()))

	got := collect(t, c.Stream(context.Background(), nil, ""))
	assert.Equal(t, []core.Fragment{{Text: "Part one"}, {End: true}}, got)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestClient_StreamCancelled(t *testing.T) {
	p := &stubStream{stubChat: stubChat{replies: []string{"a", "b", "c"}}}
	c := NewClient(p, nil, WithRetrier(fastRetrier()))

	ctx, cancel := context.WithCancel(context.Background())
	ch := c.Stream(ctx, nil, "")
	first := <-ch
	assert.Equal(t, "a", first.Text)
	cancel()

	// The producer must close the channel instead of blocking forever.
	for range ch {
	}
}

func TestClient_Embed(t *testing.T) {
	t.Run("returns vector", func(t *testing.T) {
		e := &stubEmbedder{vec: []float32{1, 2}}
		c := NewClient(&stubChat{}, e, WithRetrier(fastRetrier()))
		assert.Equal(t, []float32{1, 2}, c.Embed(context.Background(), "  text  "))
		assert.Equal(t, "text", e.input)
	})

	t.Run("failure yields nil", func(t *testing.T) {
		e := &stubEmbedder{err: errors.New("down")}
		c := NewClient(&stubChat{}, e, WithRetrier(fastRetrier()))
		assert.Nil(t, c.Embed(context.Background(), "text"))
		assert.Equal(t, int32(3), e.calls.Load())
	})

	t.Run("blank text skips upstream", func(t *testing.T) {
		e := &stubEmbedder{vec: []float32{1}}
		c := NewClient(&stubChat{}, e)
		assert.Nil(t, c.Embed(context.Background(), "   "))
		assert.Equal(t, int32(0), e.calls.Load())
	})

	t.Run("no embedder", func(t *testing.T) {
		c := NewClient(&stubChat{}, nil)
		assert.Nil(t, c.Embed(context.Background(), "text"))
	})

	t.Run("long input truncated", func(t *testing.T) {
		e := &stubEmbedder{vec: []float32{1}}
		c := NewClient(&stubChat{}, e, WithEmbedMaxTokens(2))
		require.NotNil(t, c.Embed(context.Background(), "one two three four"))
		assert.Equal(t, "one two", e.input)
	})
}
