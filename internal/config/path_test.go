package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("WORDFLOW_TEST_DIR", "/tmp/wordflow")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"empty path", "", ""},
		{"absolute path unchanged", "/var/lib/wordflow.db", "/var/lib/wordflow.db"},
		{"tilde prefix", "~/data/wordflow.db", filepath.Join(home, "data", "wordflow.db")},
		{"bare tilde", "~", home},
		{"env var", "$WORDFLOW_TEST_DIR/wordflow.db", "/tmp/wordflow/wordflow.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.path))
		})
	}
}

func TestDefaultDatabasePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, "/custom/data/wordflow/wordflow.db", DefaultDatabasePath())

	t.Setenv("XDG_DATA_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "wordflow", "wordflow.db"), DefaultDatabasePath())
}
