package relay

import (
	"context"
	"sync"
	"time"

	"github.com/sandevgo/parley/internal/config"
	"github.com/sandevgo/parley/internal/core"
)

type fakeModel struct {
	mu         sync.Mutex
	reply      []string
	fallback   bool
	streams    [][]core.Turn
	directives []string
	embeds     []string
	generates  int
	summary    string
	vec        []float32
	panicOn    string

	started chan struct{}
	gate    chan struct{}
}

func (f *fakeModel) Stream(ctx context.Context, history []core.Turn, directive string) <-chan core.Fragment {
	f.mu.Lock()
	f.streams = append(f.streams, history)
	f.directives = append(f.directives, directive)
	reply, fallback, panicOn := f.reply, f.fallback, f.panicOn
	f.mu.Unlock()

	if panicOn != "" && history[len(history)-1].Content == panicOn {
		panic("model exploded")
	}

	if f.started != nil {
		f.started <- struct{}{}
	}

	out := make(chan core.Fragment)
	go func() {
		defer close(out)
		if f.gate != nil {
			select {
			case <-f.gate:
			case <-ctx.Done():
				return
			}
		}
		for _, text := range reply {
			select {
			case out <- core.Fragment{Text: text, Fallback: fallback}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- core.Fragment{End: true}:
		case <-ctx.Done():
		}
	}()
	return out
}

func (f *fakeModel) Generate(ctx context.Context, history []core.Turn, directive string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generates++
	return f.summary
}

func (f *fakeModel) Embed(ctx context.Context, text string) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds = append(f.embeds, text)
	return f.vec
}

func (f *fakeModel) streamHistories() [][]core.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]core.Turn(nil), f.streams...)
}

func (f *fakeModel) embedCount(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.embeds {
		if e == text {
			n++
		}
	}
	return n
}

func (f *fakeModel) generateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generates
}

type fakeClassifier struct {
	sentiment core.Sentiment
	err       error
	panics    bool
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (core.Sentiment, error) {
	if f.panics {
		panic("classifier exploded")
	}
	return f.sentiment, f.err
}

type fakeRepo struct {
	mu       sync.Mutex
	inserted []core.MemoryRecord
	searches []core.MemoryQuery
	matches  []core.MemoryMatch
}

func (f *fakeRepo) Insert(ctx context.Context, rec core.MemoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakeRepo) Search(ctx context.Context, q core.MemoryQuery) ([]core.MemoryMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, q)
	return f.matches, nil
}

func (f *fakeRepo) insertedRecords() []core.MemoryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.MemoryRecord(nil), f.inserted...)
}

func (f *fakeRepo) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

type panickySummarizer struct {
	mu    sync.Mutex
	calls int
}

func (p *panickySummarizer) Summarize(ctx context.Context, ownerID string, history []core.Turn) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	panic("repository exploded")
}

func (p *panickySummarizer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type testRelayConfig struct {
	queueSize int
}

func (c testRelayConfig) GetReadLimit() int64            { return 1 << 16 }
func (c testRelayConfig) GetPingInterval() time.Duration { return 5 * time.Second }
func (c testRelayConfig) GetWriteTimeout() time.Duration { return time.Second }
func (c testRelayConfig) GetCycleTimeout() time.Duration { return 5 * time.Second }
func (c testRelayConfig) GetQueueSize() int {
	if c.queueSize == 0 {
		return 8
	}
	return c.queueSize
}

func testMemoryConfig() *config.MemoryConfig {
	return &config.MemoryConfig{Threshold: 0.75, Limit: 3, Scope: config.MemoryScopeOwner}
}
