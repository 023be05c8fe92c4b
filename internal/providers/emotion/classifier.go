// Package emotion talks to the sentiment classification service that labels
// user turns before they reach the model.
package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sandevgo/parley/internal/core"
)

const detectPath = "/detect-emotion"

type Classifier struct {
	client   *http.Client
	url      string
	minScore float64
}

// NewClassifier returns a classifier for the service at baseURL. Labels scored
// below minScore are reported as unknown.
func NewClassifier(baseURL string, timeout time.Duration, minScore float64) *Classifier {
	return &Classifier{
		client:   &http.Client{Timeout: timeout},
		url:      strings.TrimRight(baseURL, "/") + detectPath,
		minScore: minScore,
	}
}

type detectRequest struct {
	Text string `json:"text"`
}

func (c *Classifier) Classify(ctx context.Context, text string) (core.Sentiment, error) {
	if strings.TrimSpace(text) == "" {
		return core.Sentiment{}, nil
	}

	body, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return core.Sentiment{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return core.Sentiment{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", core.AppUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return core.Sentiment{}, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return core.Sentiment{}, fmt.Errorf("classify: http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var s core.Sentiment
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return core.Sentiment{}, fmt.Errorf("decode: %w", err)
	}

	s.Label = strings.ToLower(strings.TrimSpace(s.Label))
	if s.Score < c.minScore {
		return core.Sentiment{}, nil
	}
	return s, nil
}

// Disabled is used when no classifier URL is configured.
type Disabled struct{}

func (Disabled) Classify(context.Context, string) (core.Sentiment, error) {
	return core.Sentiment{}, nil
}

// New picks the classifier for url; an empty url disables classification.
func New(url string, timeout time.Duration, minScore float64) core.SentimentClassifier {
	if strings.TrimSpace(url) == "" {
		return Disabled{}
	}
	return NewClassifier(url, timeout, minScore)
}
