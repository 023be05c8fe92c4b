package core

import "context"

// ChatProvider produces a whole reply for the history under a system directive.
type ChatProvider interface {
	Chat(ctx context.Context, history []Turn, directive string) (string, error)
}

// StreamProvider additionally delivers the reply incrementally. yield is called for
// every non-empty piece of text; an error from yield aborts the stream.
type StreamProvider interface {
	ChatProvider
	ChatStream(ctx context.Context, history []Turn, directive string, yield func(text string) error) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (Sentiment, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}
