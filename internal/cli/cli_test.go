package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (cfgFile, docs string) {
	t.Helper()
	dir := t.TempDir()
	docs = filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "space.txt"), []byte("Rockets carry satellites into orbit."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "fruit.txt"), []byte("Apples grow in the orchard."), 0o644))

	cfgFile = filepath.Join(dir, "config.yaml")
	yaml := "index:\n  persist_dir: " + filepath.Join(dir, "idx") + "\n" +
		"llm:\n  api_key_env: RAGAGENT_TEST_OPENAI_KEY\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(yaml), 0o644))
	t.Setenv("RAGAGENT_TEST_OPENAI_KEY", "")
	return cfgFile, docs
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIndexWorkflow(t *testing.T) {
	cfg, docs := writeConfig(t)

	out, err := execute(t, "--config", cfg, "index", "info")
	require.NoError(t, err)
	assert.Equal(t, "No index found.\n", out)

	out, err = execute(t, "--config", cfg, "index", "build", filepath.Join(docs, "*.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, "Index built: 2 documents, 2 chunks.")

	out, err = execute(t, "--config", cfg, "search", "-k", "1", "rockets")
	require.NoError(t, err)
	assert.Contains(t, out, "Source: space.txt | Score: ")
	assert.Contains(t, out, "Rockets carry satellites into orbit.")
	assert.NotContains(t, out, "fruit.txt")

	out, err = execute(t, "--config", cfg, "index", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Embedder:  tfidf")
	assert.Contains(t, out, "Chunks:    2")

	out, err = execute(t, "--config", cfg, "index", "clear")
	require.NoError(t, err)
	assert.Equal(t, "Index cleared.\n", out)

	out, err = execute(t, "--config", cfg, "index", "clear")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to clear.\n", out)
}

func TestCalc(t *testing.T) {
	cfg, _ := writeConfig(t)

	out, err := execute(t, "--config", cfg, "calc", "2", "**", "10")
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"result":1024}`, out)

	out, err = execute(t, "--config", cfg, "calc", "1/0")
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"division by zero"}`, out)
}

func TestAskWithoutKey(t *testing.T) {
	cfg, _ := writeConfig(t)
	_, err := execute(t, "--config", cfg, "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAGAGENT_TEST_OPENAI_KEY")
}

func TestBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("chunker:\n  type: magic\n"), 0o644))
	_, err := execute(t, "--config", cfg, "calc", "1")
	assert.Error(t, err)
}
