package memory

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/sandevgo/parley/internal/core"
)

// Directive renders the system instruction for one reply from a text/template
// with .Sentiment and .Memories.
type Directive struct {
	tmpl *template.Template
}

type directiveData struct {
	Sentiment string
	Score     float64
	Memories  []string
}

func NewDirective(text string) (*Directive, error) {
	tmpl, err := template.New("directive").Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse directive: %w", err)
	}
	return &Directive{tmpl: tmpl}, nil
}

func (d *Directive) Render(sentiment core.Sentiment, memories []string) (string, error) {
	var sb strings.Builder
	err := d.tmpl.Execute(&sb, directiveData{
		Sentiment: sentiment.Label,
		Score:     sentiment.Score,
		Memories:  memories,
	})
	if err != nil {
		return "", fmt.Errorf("render directive: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}
