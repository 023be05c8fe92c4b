package memory

import (
	"context"
	"strings"
	"time"

	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/pkg/log"
)

// Model is the part of the language model client the summarizer needs.
type Model interface {
	Generate(ctx context.Context, history []core.Turn, directive string) string
	Embed(ctx context.Context, text string) []float32
}

// Summarizer condenses a finished conversation into one memory record.
type Summarizer struct {
	model     Model
	store     *Store
	directive string
	fallback  string
	timeout   time.Duration
}

func NewSummarizer(model Model, store *Store, prompts core.PromptConfig, timeout time.Duration) *Summarizer {
	return &Summarizer{
		model:     model,
		store:     store,
		directive: prompts.GetSummaryDirective(),
		fallback:  prompts.GetFallbackReply(),
		timeout:   timeout,
	}
}

// Summarize generates, embeds and stores a summary of history for ownerID.
// It runs on a context detached from ctx's cancellation so a closing
// connection does not abort it. Empty history does nothing.
func (s *Summarizer) Summarize(ctx context.Context, ownerID string, history []core.Turn) {
	if len(history) == 0 || !s.store.Enabled() {
		return
	}

	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	logger := log.FromCtx(ctx)

	summary := strings.TrimSpace(s.model.Generate(ctx, []core.Turn{{
		Role:    core.RoleUser,
		Content: Transcript(history),
	}}, s.directive))
	if summary == "" || summary == s.fallback {
		logger.Warn().Str("owner", ownerID).Msg("summary unavailable, nothing stored")
		return
	}

	vec := s.model.Embed(ctx, summary)
	if len(vec) == 0 {
		logger.Warn().Str("owner", ownerID).Msg("summary embedding unavailable, nothing stored")
		return
	}

	s.store.Append(ctx, ownerID, summary, vec)
	logger.Info().Str("owner", ownerID).Int("turns", len(history)).Msg("conversation summarized")
}

// Transcript renders history as role-prefixed lines.
func Transcript(history []core.Turn) string {
	var sb strings.Builder
	for i, t := range history {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch t.Role {
		case core.RoleModel:
			sb.WriteString("Assistant: ")
		default:
			sb.WriteString("User: ")
		}
		sb.WriteString(t.Content)
	}
	return sb.String()
}
