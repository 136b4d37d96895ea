package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Classification
		wantErr bool
	}{
		{
			name:    "well formed lines",
			content: "Language: Spanish\nTranslation: house\nCategory: Noun",
			want:    Classification{Language: "Spanish", Translation: "house", Category: "Noun"},
		},
		{
			name:    "case insensitive keys and extra whitespace",
			content: "  LANGUAGE :  German \n translation: dog\nCATEGORY: Noun ",
			want:    Classification{Language: "German", Translation: "dog", Category: "Noun"},
		},
		{
			name:    "unknown lines skipped",
			content: "Sure, here you go:\nLanguage: French\nTranslation: bread\nCategory: Noun\nHope that helps!",
			want:    Classification{Language: "French", Translation: "bread", Category: "Noun"},
		},
		{
			name:    "json fallback",
			content: `{"language":"Italian","translation":"water","category":"Noun"}`,
			want:    Classification{Language: "Italian", Translation: "water", Category: "Noun"},
		},
		{
			name:    "partial answer still parses",
			content: "Language: Dutch",
			want:    Classification{Language: "Dutch"},
		},
		{
			name:    "value containing colon",
			content: "Translation: note: a short record",
			want:    Classification{Translation: "note: a short record"},
		},
		{
			name:    "empty response",
			content: "   ",
			wantErr: true,
		},
		{
			name:    "freeform response",
			content: "I cannot classify that word.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClassification(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	req := ClassifyRequest{
		Word:       "perro",
		Languages:  []string{"English", "Spanish"},
		Categories: []string{"Noun", "Verb"},
	}

	prompt := BuildPrompt(req)
	assert.Contains(t, prompt, "perro")
	assert.Contains(t, prompt, "English, Spanish")
	assert.Contains(t, prompt, "Noun, Verb")
}

func TestBuildPrompt_CustomTemplate(t *testing.T) {
	req := ClassifyRequest{
		Word:           "perro",
		Languages:      []string{"Spanish"},
		Categories:     []string{"Noun"},
		LanguagePrompt: "Identify the language of {word} among {languages}.",
		CategoryPrompt: "Then pick one of {categories}.",
	}

	prompt := BuildPrompt(req)
	assert.Equal(t, "Identify the language of perro among Spanish.\nThen pick one of Noun.", prompt)
}

func TestParseClassification_FreeformLineWithColonIsIgnored(t *testing.T) {
	// Freeform text that happens to contain a colon must not be mistaken for
	// a known key.
	got, err := ParseClassification("Note: unsure\nLanguage: Polish")
	require.NoError(t, err)
	assert.Equal(t, "Polish", got.Language)
}
