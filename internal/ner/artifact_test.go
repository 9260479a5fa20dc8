package ner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModelDir(t *testing.T, config string, extras ...string) string {
	t.Helper()
	dir := t.TempDir()
	if config != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(config), 0o644))
	}
	for _, name := range extras {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	return dir
}

const validConfig = `{"id2label": {"0": "O", "1": "B-GPE", "2": "I-GPE", "3": "B-LOC"}}`

func TestValidateArtifact(t *testing.T) {
	dir := writeModelDir(t, validConfig, "tokenizer.json", "model.safetensors")

	labels, err := ValidateArtifact(dir)
	require.NoError(t, err)
	assert.Equal(t, "B-GPE", labels["1"])
}

func TestValidateArtifactLegacyFiles(t *testing.T) {
	dir := writeModelDir(t, validConfig, "vocab.txt", "pytorch_model.bin")

	_, err := ValidateArtifact(dir)
	assert.NoError(t, err)
}

func TestValidateArtifactMissingDir(t *testing.T) {
	_, err := ValidateArtifact(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestValidateArtifactMissingConfig(t *testing.T) {
	dir := writeModelDir(t, "", "tokenizer.json", "model.safetensors")

	_, err := ValidateArtifact(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestValidateArtifactNoLocationLabels(t *testing.T) {
	dir := writeModelDir(t, `{"id2label": {"0": "O", "1": "B-PER"}}`, "tokenizer.json", "model.safetensors")

	_, err := ValidateArtifact(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no location labels")
}

func TestValidateArtifactMissingTokenizer(t *testing.T) {
	dir := writeModelDir(t, validConfig, "model.safetensors")

	_, err := ValidateArtifact(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokenizer")
}

func TestValidateArtifactMissingWeights(t *testing.T) {
	dir := writeModelDir(t, validConfig, "tokenizer.json")

	_, err := ValidateArtifact(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights")
}
