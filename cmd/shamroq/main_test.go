package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func writeTestConfig(t *testing.T, dir, rulesFile string) string {
	t.Helper()

	content, err := json.Marshal(map[string]any{
		"settings": map[string]any{
			"dataset":    "DEMO",
			"log_file":   filepath.Join(dir, "logs", "test.log"),
			"rules_file": rulesFile,
		},
		"DEMO": map[string]any{
			"HOME_BASE": dir,
			"VOLUMES":   []string{"demo.xml"},
			"REG_NAME":  "DEMO",
		},
	})
	require.NoError(t, err)

	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestInitCreatesProjectLayout(t *testing.T) {
	dir := t.TempDir()

	output := execute(t, "init", dir)
	assert.Contains(t, output, "Initialized shamroq project")

	for _, path := range []string{
		filepath.Join(dir, "config", "config.json"),
		filepath.Join(dir, "config", "shamroq-patterns-rules.jsonl"),
		filepath.Join(dir, "logs"),
		filepath.Join(dir, "data"),
	} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	output = execute(t, "datasets", "--config", filepath.Join(dir, "config", "config.json"))
	assert.Contains(t, output, "FAR")
	assert.Contains(t, output, "(default)")
}

func TestPatternsCheck(t *testing.T) {
	dir := t.TempDir()
	execute(t, "init", dir)
	configPath := writeTestConfig(t, dir, filepath.Join(dir, "config", "shamroq-patterns-rules.jsonl"))

	output := execute(t, "patterns", "check", "--config", configPath)
	assert.Contains(t, output, "Skipped: 0")
	assert.Contains(t, output, "OBLIGATION")
	assert.Contains(t, output, "PROHIBITION")
}

func TestPatternsTest(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.jsonl")
	require.NoError(t, os.WriteFile(rules, []byte(`{"pattern": "shall", "label": "OBLIGATION"}`+"\n"), 0644))
	configPath := writeTestConfig(t, dir, rules)

	output := execute(t, "patterns", "test", "--config", configPath,
		"No person shall park here. This is informational.")

	assert.Contains(t, output, "[1] No person shall park here.")
	assert.Contains(t, output, `=> OBLIGATION "shall"`)
	assert.Contains(t, output, "[2] This is informational.")
	assert.Contains(t, output, "=> no match")
}
