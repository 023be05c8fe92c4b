package voice

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.fail[text] {
		return nil, errors.New("tts down")
	}
	return []byte(text), nil
}

func (f *fakeSynth) synthesized() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// recordingPlayer records fragments that played to completion. The fragment
// named by blockOn plays until its context is cancelled.
type recordingPlayer struct {
	mu      sync.Mutex
	played  []string
	blockOn string
	blocked chan struct{}
}

func (p *recordingPlayer) Play(ctx context.Context, audio []byte) error {
	if string(audio) == p.blockOn {
		if p.blocked != nil {
			p.blocked <- struct{}{}
		}
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, string(audio))
	return nil
}

func (p *recordingPlayer) fragments() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.played...)
}

func waitBlocked(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("playback never started")
	}
}

func TestController_PlaysFragmentsInOrder(t *testing.T) {
	synth := &fakeSynth{}
	player := &recordingPlayer{}
	c := NewController(synth, player)

	c.Speak(context.Background(), "First sentence. Second **sentence**! Third?")
	c.Wait()

	assert.Equal(t, []string{"First sentence.", "Second sentence!", "Third?"}, player.fragments())
}

func TestController_InsertsFillersBetweenFragments(t *testing.T) {
	player := &recordingPlayer{}
	c := NewController(&fakeSynth{}, player,
		WithFillers(RandomFillers([]string{"Hmm."}, 1)),
		WithRand(rand.New(rand.NewSource(1))),
	)

	c.Speak(context.Background(), "One. Two.")
	c.Wait()

	assert.Equal(t, []string{"One.", "Hmm.", "Two."}, player.fragments())
}

func TestController_StopThenSpeakNeverPlaysStaleAudio(t *testing.T) {
	synth := &fakeSynth{}
	player := &recordingPlayer{blockOn: "Old one.", blocked: make(chan struct{}, 1)}
	c := NewController(synth, player)

	c.Speak(context.Background(), "Old one. Old two. Old three.")
	waitBlocked(t, player.blocked)

	c.Stop()
	c.Speak(context.Background(), "New one. New two.")
	c.Wait()

	assert.Equal(t, []string{"New one.", "New two."}, player.fragments())
	assert.NotContains(t, synth.synthesized(), "Old two.")
}

func TestController_SpeakSupersedesCurrentReply(t *testing.T) {
	synth := &fakeSynth{}
	player := &recordingPlayer{blockOn: "Old one.", blocked: make(chan struct{}, 1)}
	c := NewController(synth, player)

	c.Speak(context.Background(), "Old one. Old two.")
	waitBlocked(t, player.blocked)

	c.Speak(context.Background(), "New one.")
	c.Wait()

	assert.Equal(t, []string{"New one."}, player.fragments())
	assert.NotContains(t, synth.synthesized(), "Old two.")
}

func TestController_SkipsFragmentsThatFailToSynthesize(t *testing.T) {
	synth := &fakeSynth{fail: map[string]bool{"Two.": true}}
	player := &recordingPlayer{}
	c := NewController(synth, player)

	c.Speak(context.Background(), "One. Two. Three.")
	c.Wait()

	assert.Equal(t, []string{"One.", "Three."}, player.fragments())
}

func TestController_EmptyTextPlaysNothing(t *testing.T) {
	synth := &fakeSynth{}
	c := NewController(synth, &recordingPlayer{})

	c.Speak(context.Background(), "  ")
	c.Wait()
	c.Stop()

	assert.Empty(t, synth.synthesized())
}

func TestRandomFillers(t *testing.T) {
	phrases := []string{"Hmm.", "Well,", "Okay."}

	tests := []struct {
		name     string
		strategy FillerStrategy
		index    int
		draw     float64
		want     string
		wantOK   bool
	}{
		{name: "draw above probability", strategy: RandomFillers(phrases, 0.3), draw: 0.5},
		{name: "draw at probability", strategy: RandomFillers(phrases, 0.3), draw: 0.3},
		{name: "first phrase", strategy: RandomFillers(phrases, 0.3), draw: 0.05, want: "Hmm.", wantOK: true},
		{name: "index rotates phrase", strategy: RandomFillers(phrases, 0.3), index: 1, draw: 0.05, want: "Well,", wantOK: true},
		{name: "last phrase", strategy: RandomFillers(phrases, 0.3), draw: 0.29, want: "Okay.", wantOK: true},
		{name: "zero probability", strategy: RandomFillers(phrases, 0), draw: 0},
		{name: "no phrases", strategy: RandomFillers(nil, 1), draw: 0},
		{name: "disabled", strategy: NoFillers, draw: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.strategy(tt.index, tt.draw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPSynthesizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req speakRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.Text == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"upstream down"}`))
			return
		}
		assert.Equal(t, "nova", req.Voice)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3:" + req.Text))
	}))
	defer srv.Close()

	s := NewHTTPSynthesizer(srv.URL, "nova", time.Second)

	audio, err := s.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "mp3:hello", string(audio))

	_, err = s.Synthesize(context.Background(), "fail")
	assert.ErrorContains(t, err, "upstream down")
}

func TestExecPlayer(t *testing.T) {
	ok, err := NewExecPlayer("cat")
	require.NoError(t, err)
	assert.NoError(t, ok.Play(context.Background(), []byte("audio")))

	failing, err := NewExecPlayer("false")
	require.NoError(t, err)
	assert.Error(t, failing.Play(context.Background(), []byte("audio")))

	_, err = NewExecPlayer("")
	assert.Error(t, err)
}

func TestDiscardPlayer(t *testing.T) {
	assert.NoError(t, DiscardPlayer{}.Play(context.Background(), []byte("x")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, DiscardPlayer{}.Play(ctx, nil), context.Canceled)
}
