package installer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type choice struct {
	label string
	value string
	hint  string
}

// ChoiceStep stores the value of the picked choice under envKey.
type ChoiceStep struct {
	title   string
	envKey  string
	choices []choice
	cursor  int
}

func NewProviderStep() Step {
	return &ChoiceStep{
		title:  "Select the language model provider:",
		envKey: "LLM_PROVIDER",
		choices: []choice{
			{label: "Gemini", value: "gemini", hint: "default, also embeds memories"},
			{label: "OpenAI", value: "openai"},
			{label: "Anthropic", value: "anthropic", hint: "embeddings go through OpenAI"},
			{label: "OpenRouter", value: "openrouter"},
			{label: "Ollama", value: "ollama", hint: "local models"},
			{label: "Custom", value: "custom", hint: "any OpenAI-compatible endpoint"},
		},
	}
}

func NewMemoryBackendStep() Step {
	return &ChoiceStep{
		title:  "Where should conversation memories live?",
		envKey: "MEMORY_BACKEND",
		choices: []choice{
			{label: "SQLite", value: "sqlite", hint: "file in the runtime directory"},
			{label: "PostgreSQL", value: "postgres", hint: "needs the pgvector extension"},
			{label: "Nowhere", value: "none", hint: "replies without memory"},
		},
	}
}

func NewTTSProviderStep() Step {
	return &ChoiceStep{
		title:  "Select the speech provider:",
		envKey: "TTS_PROVIDER",
		choices: []choice{
			{label: "OpenAI", value: "openai"},
			{label: "Sarvam", value: "sarvam", hint: "Indian languages"},
		},
	}
}

func (s *ChoiceStep) Init() tea.Cmd {
	return nil
}

func (s *ChoiceStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.choices)-1 {
				s.cursor++
			}
		case "enter":
			state.Set(s.envKey, s.choices[s.cursor].value)
			return nil, nil
		}
	}
	return s, nil
}

func (s *ChoiceStep) View(state *InstallState) string {
	var b strings.Builder
	b.WriteString(s.title + "\n\n")
	for i, c := range s.choices {
		if s.cursor == i {
			b.WriteString(selStyle.Render("❯ " + c.label))
		} else {
			b.WriteString(itemStyle.Render("  " + c.label))
		}
		if c.hint != "" {
			b.WriteString(" " + hintStyle.Render(fmt.Sprintf("(%s)", c.hint)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n(press ctrl+c to quit)\n")
	return b.String()
}
