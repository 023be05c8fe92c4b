package installer

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

var suggestedModels = map[string][]item{
	"gemini": {
		{id: "gemini-2.5-flash", title: "Gemini 2.5 Flash", desc: "fast, the default"},
		{id: "gemini-2.5-pro", title: "Gemini 2.5 Pro", desc: "slower, more careful"},
		{id: "gemini-2.0-flash", title: "Gemini 2.0 Flash", desc: "previous generation"},
	},
	"openai": {
		{id: "gpt-4o-mini", title: "GPT-4o mini", desc: "fast and cheap"},
		{id: "gpt-4o", title: "GPT-4o", desc: "general purpose"},
		{id: "gpt-4.1-mini", title: "GPT-4.1 mini", desc: "long context"},
	},
	"anthropic": {
		{id: "claude-sonnet-4-5", title: "Claude Sonnet 4.5", desc: "balanced"},
		{id: "claude-haiku-4-5", title: "Claude Haiku 4.5", desc: "fast"},
	},
	"openrouter": {
		{id: "google/gemini-2.5-flash", title: "Gemini 2.5 Flash", desc: "ID: google/gemini-2.5-flash"},
		{id: "openai/gpt-4o-mini", title: "GPT-4o mini", desc: "ID: openai/gpt-4o-mini"},
		{id: "anthropic/claude-sonnet-4.5", title: "Claude Sonnet 4.5", desc: "ID: anthropic/claude-sonnet-4.5"},
	},
	"ollama": {
		{id: "llama3.1", title: "Llama 3.1", desc: "8B by default"},
		{id: "qwen2.5", title: "Qwen 2.5", desc: "multilingual"},
		{id: "mistral", title: "Mistral", desc: "7B"},
	},
}

type item struct {
	id    string
	title string
	desc  string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.id }

// ModelStep picks LLM_MODEL from a filterable list of suggestions. Providers
// without suggestions get a free text input.
type ModelStep struct {
	list     list.Model
	input    textinput.Model
	ready    bool
	freeText bool
}

func NewModelStep() Step {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select the model"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return &ModelStep{list: l}
}

func (s *ModelStep) Init() tea.Cmd {
	return next
}

func (s *ModelStep) setup(provider string) tea.Cmd {
	s.ready = true

	suggestions := suggestedModels[provider]
	if len(suggestions) == 0 {
		s.freeText = true
		s.input = textinput.New()
		s.input.Focus()
		s.input.Width = 50
		s.input.Placeholder = "model name"
		return textinput.Blink
	}

	items := make([]list.Item, len(suggestions))
	for i, m := range suggestions {
		items[i] = m
	}
	return s.list.SetItems(items)
}

func (s *ModelStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if !s.ready {
		return s, s.setup(state.Get("LLM_PROVIDER"))
	}

	var cmd tea.Cmd
	if s.freeText {
		s.input, cmd = s.input.Update(msg)
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
			if val := strings.TrimSpace(s.input.Value()); val != "" {
				state.Set("LLM_MODEL", val)
				return nil, nil
			}
		}
		return s, cmd
	}

	s.list.SetSize(width, max(height-4, 0))

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		wasFiltering := s.list.FilterState() == list.Filtering
		s.list, cmd = s.list.Update(msg)
		if wasFiltering || s.list.FilterState() == list.Filtering {
			return s, cmd
		}
		if i, ok := s.list.SelectedItem().(item); ok {
			state.Set("LLM_MODEL", i.id)
			return nil, nil
		}
		return s, cmd
	}

	s.list, cmd = s.list.Update(msg)
	return s, cmd
}

func (s *ModelStep) View(state *InstallState) string {
	if !s.ready {
		return "Loading...\n"
	}
	if s.freeText {
		return "Enter the model name:\n\n" + s.input.View() + "\n\n(press enter to confirm)\n"
	}
	return s.list.View()
}
