package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/parley/internal/config"
	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/internal/service/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Init(t *testing.T) {
	sess := NewSession("s1")
	assert.Equal(t, "", sess.OwnerID())

	require.NoError(t, sess.Init(core.User{ID: "alice", Email: "alice@example.com"}))
	assert.Equal(t, "alice", sess.OwnerID())

	assert.ErrorIs(t, sess.Init(core.User{ID: "mallory"}), ErrOwnerAlreadySet)
	assert.Equal(t, "alice", sess.OwnerID())
}

func TestSession_EndRejectsFurtherWork(t *testing.T) {
	sess := NewSession("s1")
	require.NoError(t, sess.Append(core.Turn{Role: core.RoleUser, Content: "hi"}))
	require.NoError(t, sess.End())

	assert.True(t, sess.Closed())
	assert.ErrorIs(t, sess.End(), ErrSessionClosed)
	assert.ErrorIs(t, sess.Init(core.User{ID: "alice"}), ErrSessionClosed)
	assert.ErrorIs(t, sess.Append(core.Turn{Role: core.RoleUser, Content: "again"}), ErrSessionClosed)
	assert.Len(t, sess.History(), 1)
}

func TestSession_HistoryIsACopy(t *testing.T) {
	sess := NewSession("s1")
	require.NoError(t, sess.Append(core.Turn{Role: core.RoleUser, Content: "hi"}))

	h := sess.History()
	h[0].Content = "changed"
	assert.Equal(t, "hi", sess.History()[0].Content)
}

func TestSession_FinishRunsOnce(t *testing.T) {
	sess := NewSession("s1")
	require.NoError(t, sess.Init(core.User{ID: "alice"}))
	require.NoError(t, sess.Append(core.Turn{Role: core.RoleUser, Content: "hi"}))

	var calls int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Finish(func(ownerID string, history []core.Turn) {
				mu.Lock()
				calls++
				mu.Unlock()
				assert.Equal(t, "alice", ownerID)
				assert.Len(t, history, 1)
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
	assert.True(t, sess.Closed())
}

func TestSession_SummaryOnClose(t *testing.T) {
	tests := []struct {
		name          string
		history       []core.Turn
		wantGenerates int
		wantInserts   int
	}{
		{
			name: "non-empty history stores exactly one summary",
			history: []core.Turn{
				{Role: core.RoleUser, Content: "I moved to Lisbon"},
				{Role: core.RoleModel, Content: "How exciting!"},
			},
			wantGenerates: 1,
			wantInserts:   1,
		},
		{
			name:          "empty history makes no calls",
			wantGenerates: 0,
			wantInserts:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{summary: "The user moved to Lisbon.", vec: []float32{1, 0}}
			repo := &fakeRepo{}
			store := memory.NewStore(repo, testMemoryConfig())
			summarizer := memory.NewSummarizer(model, store, config.DefaultPrompts(), time.Second)

			sess := NewSession("s1")
			require.NoError(t, sess.Init(core.User{ID: "alice"}))
			for _, turn := range tt.history {
				require.NoError(t, sess.Append(turn))
			}

			for i := 0; i < 2; i++ {
				sess.Finish(func(ownerID string, history []core.Turn) {
					summarizer.Summarize(context.Background(), ownerID, history)
				})
			}

			assert.Equal(t, tt.wantGenerates, model.generateCount())
			assert.Equal(t, tt.wantInserts, model.embedCount("The user moved to Lisbon."))
			assert.Len(t, repo.insertedRecords(), tt.wantInserts)
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	var cancelled int
	var mu sync.Mutex
	cancel := func() {
		mu.Lock()
		cancelled++
		mu.Unlock()
	}

	un1 := r.Register("a", cancel)
	un2 := r.Register("b", cancel)
	assert.Equal(t, 2, r.Count())

	assert.Equal(t, 2, r.CancelAll())
	assert.Equal(t, 2, cancelled)

	un1()
	un1()
	assert.Equal(t, 1, r.Count())

	ctx, cancelWait := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelWait()
	assert.False(t, r.Wait(ctx))

	un2()
	assert.True(t, r.Wait(context.Background()))
	assert.Equal(t, 0, r.Count())
}

func TestDecodeClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    any
		wantErr string
	}{
		{
			name: "init",
			data: `{"type":"init","user":{"id":" u1 ","email":"u1@example.com"}}`,
			want: ClientInit{Type: "init", User: core.User{ID: "u1", Email: "u1@example.com"}},
		},
		{
			name:    "init without id",
			data:    `{"type":"init","user":{"email":"u1@example.com"}}`,
			wantErr: "init.user.id is required (user.id)",
		},
		{
			name: "continue",
			data: `{"type":"continue","message":"Hello"}`,
			want: ClientContinue{Type: "continue", Message: "Hello"},
		},
		{
			name:    "continue blank",
			data:    `{"type":"continue","message":"   "}`,
			wantErr: "continue.message is required (message)",
		},
		{
			name: "end",
			data: `{"type":"end"}`,
			want: ClientEnd{Type: "end"},
		},
		{
			name:    "malformed",
			data:    `{"type":`,
			wantErr: "invalid json frame",
		},
		{
			name:    "missing type",
			data:    `{"message":"hi"}`,
			wantErr: "missing type (type)",
		},
		{
			name:    "unknown type",
			data:    `{"type":"dance"}`,
			wantErr: "unknown message type (dance)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeClientMessage([]byte(tt.data))
			if tt.wantErr != "" {
				var de *DecodeError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientContinue_Streaming(t *testing.T) {
	off := false
	assert.True(t, ClientContinue{}.Streaming())
	assert.False(t, ClientContinue{Stream: &off}.Streaming())
}

func TestEncodeFrames(t *testing.T) {
	assert.JSONEq(t, `{"partial":"Hi"}`, string(EncodePartial("Hi")))
	assert.JSONEq(t, `{"reply":"Hi"}`, string(EncodeReply("Hi")))
	assert.JSONEq(t, `{"error":"nope"}`, string(EncodeError("nope")))
}
