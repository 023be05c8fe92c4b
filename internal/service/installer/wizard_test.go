package installer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func typed(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends msgs one by one and lets steps that run on their own advance.
func press(t *testing.T, m model, msgs ...tea.Msg) model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = settle(updated.(model))
	}
	return m
}

func settle(m model) model {
	for {
		before := m.currentStep
		updated, _ := m.Update(nextMsg{})
		m = updated.(model)
		if m.currentStep == before {
			return m
		}
	}
}

func TestWizard_WritesCollectedSettings(t *testing.T) {
	dir := t.TempDir()
	m := settle(newModel(getSteps(Options{RuntimePath: dir})))

	m = press(t, m,
		tea.WindowSizeMsg{Width: 80, Height: 24},
		down, down, down, down, enter, // Ollama
		enter,       // no API key
		enter,       // default base URL
		down, enter, // qwen2.5
		down, enter, // PostgreSQL
		typed("postgres://db"), enter,
		down, enter, // Sarvam
		typed("sk-sarvam"), enter,
	)
	require.True(t, m.done(), "wizard stopped at step %d: %s", m.currentStep, m.View())

	data, err := os.ReadFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	content := string(data)

	for _, line := range []string{
		"LLM_PROVIDER=ollama",
		"OLLAMA_BASE_URL=http://localhost:11434",
		"# OLLAMA_API_KEY=",
		"LLM_MODEL=qwen2.5",
		"MEMORY_BACKEND=postgres",
		"MEMORY_DATABASE_URL=postgres://db",
		"TTS_PROVIDER=sarvam",
		"SARVAM_API_KEY=sk-sarvam",
		"# GEMINI_API_KEY=",
	} {
		assert.Contains(t, strings.Split(content, "\n"), line)
	}

	_, err = os.Stat(filepath.Join(dir, "prompts.yaml"))
	assert.NoError(t, err)
}

func TestWizard_CtrlCQuits(t *testing.T) {
	m := newModel(getSteps(Options{RuntimePath: t.TempDir()}))

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(model)

	assert.True(t, m.quitting)
	assert.Equal(t, "Setup cancelled.\n", m.View())
}

func TestInputStep_RequiresValue(t *testing.T) {
	state := NewInstallState()
	state.Set("MEMORY_BACKEND", "postgres")

	var step Step = NewDatabaseURLStep()
	step, _ = step.Update(nextMsg{}, state, 80, 24)
	require.NotNil(t, step)

	step, _ = step.Update(enter, state, 80, 24)
	require.NotNil(t, step, "empty URL must not complete the step")
	assert.Contains(t, step.View(state), "A value is required.")
	assert.Empty(t, state.Get("MEMORY_DATABASE_URL"))
}

func TestInputStep_Skips(t *testing.T) {
	tests := []struct {
		name string
		step Step
		vars map[string]string
	}{
		{"ollama url for gemini", NewOllamaURLStep(), map[string]string{"LLM_PROVIDER": "gemini"}},
		{"custom url for openai", NewCustomURLStep(), map[string]string{"LLM_PROVIDER": "openai"}},
		{"database url for sqlite", NewDatabaseURLStep(), map[string]string{"MEMORY_BACKEND": "sqlite"}},
		{"openai speech key already given", NewTTSKeyStep(), map[string]string{"TTS_PROVIDER": "openai", "OPENAI_API_KEY": "sk"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewInstallState()
			for k, v := range tt.vars {
				state.Set(k, v)
			}
			next, _ := tt.step.Update(nextMsg{}, state, 80, 24)
			assert.Nil(t, next)
		})
	}
}

func TestRenderEnv(t *testing.T) {
	out, err := RenderEnv(map[string]string{
		"LLM_PROVIDER":   "openai",
		"OPENAI_API_KEY": "sk-test",
		"EXTRA_KEY":      "x",
	})
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Contains(t, lines, "LLM_PROVIDER=openai")
	assert.Contains(t, lines, "OPENAI_API_KEY=sk-test")
	assert.Equal(t, 1, strings.Count(out, "OPENAI_API_KEY="))
	assert.True(t, strings.HasSuffix(out, "EXTRA_KEY=x\n"))

	defaults, err := RenderEnv(nil)
	require.NoError(t, err)
	assert.Contains(t, strings.Split(defaults, "\n"), "# LLM_PROVIDER=gemini")
}

func TestWriteEnv_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()

	_, err := WriteEnv(dir, nil, false)
	require.NoError(t, err)

	_, err = WriteEnv(dir, nil, false)
	assert.ErrorContains(t, err, "already exists")

	path, err := WriteEnv(dir, map[string]string{"LLM_PROVIDER": "anthropic"}, true)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "LLM_PROVIDER=anthropic\n")
}
