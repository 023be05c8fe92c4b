package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sandevgo/parley/internal/config"
	"github.com/sandevgo/parley/pkg/env"
)

// envTemplate gathers every config so the generated .env documents all knobs.
type envTemplate struct {
	App    config.AppConfig
	LLM    config.LLMConfig
	Memory config.MemoryConfig
	Voice  config.VoiceConfig
	Client config.ClientConfig
}

// RenderEnv builds .env content listing every setting. Keys in vars are
// written as values; the rest stay commented with their defaults.
func RenderEnv(vars map[string]string) (string, error) {
	content, err := env.MarshalEnv(&envTemplate{})
	if err != nil {
		return "", err
	}

	used := make(map[string]bool, len(vars))
	var out []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
		key := lineKey(line)
		// OPENAI_API_KEY and friends appear in several configs.
		if seen[key] {
			continue
		}
		seen[key] = true

		if val, ok := vars[key]; ok {
			line = key + "=" + val
			used[key] = true
		}
		out = append(out, line)
	}

	var extra []string
	for key := range vars {
		if !used[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		out = append(out, key+"="+vars[key])
	}

	return strings.Join(out, "\n") + "\n", nil
}

func lineKey(line string) string {
	line = strings.TrimPrefix(line, "# ")
	key, _, _ := strings.Cut(line, "=")
	return key
}

// WriteEnv writes .env into dir.
func WriteEnv(dir string, vars map[string]string, force bool) (string, error) {
	content, err := RenderEnv(vars)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ".env")
	return path, writeOnce(path, []byte(content), 0600, force)
}

// WritePrompts writes the default prompts.yaml into dir.
func WritePrompts(dir string, force bool) (string, error) {
	data, err := config.DefaultPrompts().Marshal()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "prompts.yaml")
	return path, writeOnce(path, data, 0644, force)
}

func writeOnce(path string, data []byte, perm os.FileMode, force bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	return os.WriteFile(path, data, perm)
}
