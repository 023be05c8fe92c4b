package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sandevgo/parley/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		input   string
		want    core.Sentiment
		wantErr bool
	}{
		{
			name:   "confident label",
			status: http.StatusOK,
			body:   `{"emotion":"Joy","score":0.93}`,
			input:  "I got the job!",
			want:   core.Sentiment{Label: "joy", Score: 0.93},
		},
		{
			name:   "low score is unknown",
			status: http.StatusOK,
			body:   `{"emotion":"fear","score":0.12}`,
			input:  "hmm",
			want:   core.Sentiment{},
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    "model not loaded",
			input:   "hello",
			wantErr: true,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"emotion":`,
			input:   "hello",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/detect-emotion", r.URL.Path)
				var req detectRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, tt.input, req.Text)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			c := NewClassifier(server.URL+"/", time.Second, 0.3)
			got, err := c.Classify(context.Background(), tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifier_BlankTextSkipsService(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	got, err := NewClassifier(server.URL, time.Second, 0).Classify(context.Background(), "  ")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.False(t, called)
}

func TestClassifier_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, err := NewClassifier(server.URL, 20*time.Millisecond, 0).Classify(context.Background(), "slow")
	assert.Error(t, err)
}

func TestNew_EmptyURLDisables(t *testing.T) {
	c := New("", time.Second, 0)
	got, err := c.Classify(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}
