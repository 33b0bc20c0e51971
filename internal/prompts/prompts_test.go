package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	store, err := NewStore("", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, store.SystemPrompt())

	out, err := store.Render(TemplateDecompose, map[string]any{"user_prompt": "build a parser"})
	require.NoError(t, err)
	assert.Contains(t, out, "build a parser")
	assert.Contains(t, out, "REQUIREMENTS:")
	assert.Contains(t, out, "SUCCESS_CRITERIA:")

	out, err = store.Render(TemplateCheckAlignment, map[string]any{
		"criteria":    "Requirements:\n- parse input",
		"description": "first attempt",
		"code":        "package main",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "package main")
	assert.Contains(t, out, "ALIGNED")
}

func TestRenderUnknownTemplate(t *testing.T) {
	store, err := NewStore("", nil)
	require.NoError(t, err)

	_, err = store.Render("nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestOverrideFromDir(t *testing.T) {
	dir := t.TempDir()
	override := "content: |\n  Break down this request: {{.user_prompt}}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "decompose.yaml"), []byte(override), 0o600))

	store, err := NewStore(dir, nil)
	require.NoError(t, err)

	out, err := store.Render(TemplateDecompose, map[string]any{"user_prompt": "build a parser"})
	require.NoError(t, err)
	assert.Contains(t, out, "Break down this request: build a parser")

	// Templates without override files keep their defaults.
	assert.NotEmpty(t, store.SystemPrompt())
}

func TestOverrideUnknownStem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mystery.yaml"), []byte("content: hi"), 0o600))

	_, err := NewStore(dir, nil)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestOverrideEmptyContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "system.yaml"), []byte("content: \"\""), 0o600))

	_, err := NewStore(dir, nil)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "system.yaml")
	require.NoError(t, os.WriteFile(path, []byte("content: first version"), 0o600))

	store, err := NewStore(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "first version", store.SystemPrompt())

	require.NoError(t, os.WriteFile(path, []byte("content: second version"), 0o600))
	require.NoError(t, store.Reload())
	assert.Equal(t, "second version", store.SystemPrompt())
}

func TestReloadFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "system.yaml")
	require.NoError(t, os.WriteFile(path, []byte("content: good version"), 0o600))

	store, err := NewStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("content: \"\""), 0o600))
	assert.Error(t, store.Reload())
	assert.Equal(t, "good version", store.SystemPrompt())
}
