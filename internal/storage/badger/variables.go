package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// variable is one section of a variables file:
//
//	[smtp_host]
//	value = "smtp.example.com"
//	description = "alert mail relay"
type variable struct {
	Value       string `toml:"value"`
	Description string `toml:"description"`
}

// LoadVariables seeds the key/value store from <dir>/variables.toml and any
// *.toml under <dir>/variables/. Credentials such as provider API keys and
// smtp_* settings live here rather than in the main config. Missing files are
// not an error; it returns the number of keys stored.
func (m *Manager) LoadVariables(ctx context.Context, dir string) (int, error) {
	files := []string{filepath.Join(dir, "variables.toml")}
	if entries, err := os.ReadDir(filepath.Join(dir, "variables")); err == nil {
		var extra []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".toml") {
				extra = append(extra, filepath.Join(dir, "variables", e.Name()))
			}
		}
		sort.Strings(extra)
		files = append(files, extra...)
	}

	loaded := 0
	for _, path := range files {
		content, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return loaded, fmt.Errorf("failed to read %s: %w", path, err)
		}

		var vars map[string]variable
		if err := toml.Unmarshal(content, &vars); err != nil {
			return loaded, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		name := filepath.Base(path)
		for key, v := range vars {
			if v.Value == "" {
				m.logger.Warn().Str("file", name).Str("key", key).Msg("Skipping variable with empty value")
				continue
			}
			desc := v.Description
			if desc == "" {
				desc = "Loaded from " + name
			}
			if err := m.kv.Set(ctx, key, v.Value, desc); err != nil {
				return loaded, fmt.Errorf("failed to store variable %s: %w", key, err)
			}
			loaded++
		}
	}

	m.logger.Debug().Str("dir", dir).Int("loaded", loaded).Msg("Variables loaded")
	return loaded, nil
}
