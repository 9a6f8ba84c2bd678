// Package prompts keeps the current LLM base prompt in a plain text file.
package prompts

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DefaultPath prompt file used when none is configured.
const DefaultPath = "prompt.txt"

// Store reads and replaces the prompt file.
type Store struct {
	path     string
	fallback string
}

// NewStore creates a prompt store. fallback is served while the file does not exist.
func NewStore(path, fallback string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path, fallback: fallback}
}

// Path returns the prompt file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the prompt from disk.
func (s *Store) Load() (string, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.fallback, nil
		}
		return "", errors.Wrap(err, "read prompt file")
	}

	prompt := strings.TrimSpace(string(payload))
	if prompt == "" {
		return s.fallback, nil
	}

	return prompt, nil
}

// Save writes the prompt atomically via temp file.
func (s *Store) Save(prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return errors.New("refusing to save an empty prompt")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create prompt dir")
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(prompt+"\n"), 0o644); err != nil {
		return errors.Wrap(err, "write prompt temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist prompt file")
	}

	return nil
}
