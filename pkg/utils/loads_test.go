package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name"`
	Words []string `json:"words"`
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.json")

	require.NoError(t, Save(path, sample{Name: "space", Words: []string{"moon", "stars"}}))
	assert.True(t, Exists(path))

	got, err := Load[sample](path)
	require.NoError(t, err)
	assert.Equal(t, "space", got.Name)
	assert.Equal(t, []string{"moon", "stars"}, got.Words)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load[sample](filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestErrJSON(t *testing.T) {
	body := ErrJSON("nope")
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "nope", body["error"])
}
