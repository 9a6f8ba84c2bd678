package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestExecute_ReturnsErrors(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	dir := t.TempDir()

	llmNoKey := writeConfig(t, dir, `
platform: coinbase
llm:
  enabled: true
backtest:
  mode: llm
  cache_dir: `+filepath.Join(dir, "cache")+`
  history_db: `+filepath.Join(dir, "runs.db")+`
`)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown command", args: []string{"trade"}, wantErr: "unknown command"},
		{name: "missing config", args: []string{"decide", "--config", filepath.Join(dir, "absent.yaml")}, wantErr: "read config"},
		{name: "unsupported platform", args: []string{"decide", "--platform", "kraken"}, wantErr: "kraken"},
		{name: "decide without llm key", args: []string{"decide", "--config", llmNoKey}, wantErr: "no API key"},
		{name: "backtest without llm key", args: []string{"backtest", "--config", llmNoKey}, wantErr: "no API key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			err := execute(tt.args, &stderr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
