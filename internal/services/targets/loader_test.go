package targets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "targets.json", `[
		{"url": "https://x/a", "title": "Alpha", "year": 2021},
		{"url": "https://x/b"},
		{"url": "https://x/a"}
	]`)

	targets, err := NewLoader(arbor.NewLogger()).Load(path)
	require.NoError(t, err)
	require.Len(t, targets, 3)

	assert.Equal(t, 1, targets[0].Index)
	assert.Equal(t, "https://x/a", targets[0].URL)
	assert.Equal(t, "Alpha", targets[0].Metadata["title"])
	assert.Equal(t, json.Number("2021"), targets[0].Metadata["year"])

	assert.Equal(t, 2, targets[1].Index)
	assert.Nil(t, targets[1].Metadata)

	// Duplicates keep their own index
	assert.Equal(t, 3, targets[2].Index)
	assert.Equal(t, targets[0].URL, targets[2].URL)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "targets.yaml", `
- url: https://x/a
  section: health
- url: https://x/b
`)

	targets, err := NewLoader(arbor.NewLogger()).Load(path)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "health", targets[0].Metadata["section"])
	assert.Equal(t, 2, targets[1].Index)
}

func TestLoad_EmptyList(t *testing.T) {
	path := writeFile(t, "targets.json", `[]`)

	targets, err := NewLoader(arbor.NewLogger()).Load(path)
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"not a list", "t.json", `{"url": "https://x/a"}`},
		{"invalid json", "t.json", `[{"url": `},
		{"element not object", "t.json", `["https://x/a"]`},
		{"missing url", "t.json", `[{"href": "https://x/a"}]`},
		{"empty url", "t.json", `[{"url": "  "}]`},
		{"url not string", "t.json", `[{"url": 42}]`},
		{"yaml mapping", "t.yml", "url: https://x/a\n"},
		{"trailing text", "t.json", `[{"url": "https://x/a"}] trailing`},
		{"second list", "t.json", `[{"url": "https://x/a"}][{"nourl": 1}]`},
		{"second object", "t.json", `[{"url": "https://x/a"}] {"url": "https://x/b"}`},
		{"second yaml document", "t.yaml", "- url: https://x/a\n---\n- nourl: 1\n"},
		{"empty yaml", "t.yaml", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)

			_, err := NewLoader(arbor.NewLogger()).Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrMalformedInput)
		})
	}
}

func TestLoad_TrailingWhitespace(t *testing.T) {
	path := writeFile(t, "targets.json", "[{\"url\": \"https://x/a\"}]\n\n  \t\n")

	targets, err := NewLoader(arbor.NewLogger()).Load(path)
	require.NoError(t, err)
	assert.Len(t, targets, 1)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader(arbor.NewLogger()).Load(filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorIs(t, err, models.ErrMalformedInput)
}
