package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/pkg/log"
	"gopkg.in/yaml.v3"
)

const defaultReplyDirective = `You are a thoughtful, empathetic assistant having a spoken conversation with a person.
Listen carefully and answer in a warm, natural tone, the way a helpful friend would.
Reply with one concise message in plain text. Do not use markdown, lists or emoji.
Keep it short enough to be spoken aloud comfortably, and ask a follow-up question when it feels natural.
{{- if .Sentiment }}
The person currently sounds {{ .Sentiment }}. Let your reply acknowledge that feeling.
{{- end }}
{{- if .Memories }}
Things you remember from earlier conversations with this person:
{{- range .Memories }}
- {{ . }}
{{- end }}
{{- end }}`

const defaultSummaryDirective = `Summarize the conversation so far in at most three sentences of plain text, written in the third person.
Keep what is worth remembering next time: who the person is, what they talked about and how they felt.`

const defaultGenerateDirective = `You are a thoughtful, empathetic assistant.
Answer the message in a warm, natural tone with one concise reply in plain text, without markdown or emoji.`

// Prompts are the texts sent to the model. Every field can be overridden from
// prompts.yaml in the runtime directory.
type Prompts struct {
	ReplyDirective    string   `yaml:"reply_directive"`
	SummaryDirective  string   `yaml:"summary_directive"`
	GenerateDirective string   `yaml:"generate_directive"`
	FallbackReply     string   `yaml:"fallback_reply"`
	Fillers           []string `yaml:"fillers"`
}

func DefaultPrompts() *Prompts {
	return &Prompts{
		ReplyDirective:    defaultReplyDirective,
		SummaryDirective:  defaultSummaryDirective,
		GenerateDirective: defaultGenerateDirective,
		FallbackReply:     core.FallbackReply,
		Fillers:           []string{"Hmm.", "Well,", "Let me think.", "Okay.", "You know,"},
	}
}

// LoadPrompts reads path over the defaults. A missing file is not an error.
func LoadPrompts(ctx context.Context, path string) (*Prompts, error) {
	p := DefaultPrompts()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.FromCtx(ctx).Debug().Str("path", path).Msg("no prompts file, using defaults")
			return p, nil
		}
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse prompts %s: %w", path, err)
	}
	p.merge(override)

	log.FromCtx(ctx).Debug().Str("path", path).Msg("loaded prompts")
	return p, nil
}

// Marshal renders the prompts for `parley init`.
func (p *Prompts) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

func (p *Prompts) merge(o Prompts) {
	if o.ReplyDirective != "" {
		p.ReplyDirective = o.ReplyDirective
	}
	if o.SummaryDirective != "" {
		p.SummaryDirective = o.SummaryDirective
	}
	if o.GenerateDirective != "" {
		p.GenerateDirective = o.GenerateDirective
	}
	if o.FallbackReply != "" {
		p.FallbackReply = o.FallbackReply
	}
	if o.Fillers != nil {
		p.Fillers = o.Fillers
	}
}

func (p *Prompts) GetReplyDirective() string {
	return p.ReplyDirective
}

func (p *Prompts) GetSummaryDirective() string {
	return p.SummaryDirective
}

func (p *Prompts) GetGenerateDirective() string {
	return p.GenerateDirective
}

func (p *Prompts) GetFallbackReply() string {
	return p.FallbackReply
}

func (p *Prompts) GetFillers() []string {
	return p.Fillers
}
