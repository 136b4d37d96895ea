package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectWords(t *testing.T) {
	dir := t.TempDir()
	wordFile := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(wordFile, []byte("casa\n\n  hund  \nchat\ncasa\n"), 0o600))

	tests := []struct {
		name string
		args []string
		file string
		want []string
	}{
		{
			name: "args only",
			args: []string{"uno", "dos", "uno"},
			want: []string{"uno", "dos"},
		},
		{
			name: "file only trims and dedupes",
			file: wordFile,
			want: []string{"casa", "hund", "chat"},
		},
		{
			name: "args take precedence in ordering",
			args: []string{"chat"},
			file: wordFile,
			want: []string{"chat", "casa", "hund"},
		},
		{
			name: "blank args dropped",
			args: []string{"  ", ""},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := processCmd()
			if tt.file != "" {
				require.NoError(t, cmd.Flags().Set("file", tt.file))
			}

			got, err := collectWords(cmd, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectWords_MissingFile(t *testing.T) {
	cmd := processCmd()
	require.NoError(t, cmd.Flags().Set("file", "/nonexistent/words.txt"))

	_, err := collectWords(cmd, nil)
	assert.Error(t, err)
}
