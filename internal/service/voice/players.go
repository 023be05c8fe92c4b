package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// ExecPlayer pipes audio into a command's stdin, e.g. "mpg123 -q -".
type ExecPlayer struct {
	cmd []string
}

func NewExecPlayer(command string) (*ExecPlayer, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse player command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("player command is empty")
	}
	return &ExecPlayer{cmd: args}, nil
}

func (p *ExecPlayer) Play(ctx context.Context, audio []byte) error {
	cmd := exec.CommandContext(ctx, p.cmd[0], p.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("player failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// DiscardPlayer drops audio. Used when muted or headless.
type DiscardPlayer struct{}

func (DiscardPlayer) Play(ctx context.Context, _ []byte) error {
	return ctx.Err()
}

// HTTPSynthesizer asks a parley server's speech endpoint for audio.
type HTTPSynthesizer struct {
	client *http.Client
	url    string
	voice  string
}

func NewHTTPSynthesizer(url, voice string, timeout time.Duration) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		client: &http.Client{Timeout: timeout},
		url:    url,
		voice:  voice,
	}
}

type speakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(speakRequest{Text: text, Voice: s.voice})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speak request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("speak failed (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("speak failed (%d)", resp.StatusCode)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("speak returned no audio")
	}
	return data, nil
}
