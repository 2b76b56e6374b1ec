// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		format string
		input  string
		want   []string
	}{
		{
			name:  "json array",
			input: `[{"document_title": " A ", "authors": "Jane Doe"}, {"document_title": "B"}]`,
			want:  []string{"A", "B"},
		},
		{
			name:  "json wrapper",
			input: `{"papers": [{"document_title": "A"}]}`,
			want:  []string{"A"},
		},
		{
			name:  "yaml list",
			input: "- document_title: A\n  year: \"2024\"\n- document_title: B\n",
			want:  []string{"A", "B"},
		},
		{
			name:  "yaml wrapper",
			input: "papers:\n  - document_title: A\n",
			want:  []string{"A"},
		},
		{
			name:   "explicit yaml",
			format: FormatYAML,
			input:  "[{document_title: A}]",
			want:   []string{"A"},
		},
		{
			name:  "empty yaml",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			papers, err := Decode(strings.NewReader(tt.input), tt.format)
			require.NoError(t, err)
			titles := []string{}
			for _, p := range papers {
				titles = append(titles, p.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"document_title": "A"}, {"abstract": "no title"}]`), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paper 2")

	_, err = Decode(strings.NewReader(`[{`), "")
	assert.ErrorContains(t, err, "parsing JSON")

	_, err = Decode(strings.NewReader(`a,b`), "csv")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestNormalize(t *testing.T) {
	p, err := Normalize(types.Paper{
		ID: 9, Title: "  Title\n", Abstract: " text ", DOI: " 10.1/x ",
		Responses: []types.ModelResponse{{ModelName: "A"}},
	})
	require.NoError(t, err)
	assert.Equal(t, types.Paper{Title: "Title", Abstract: "text", DOI: "10.1/x", Authors: NoAuthors}, p)

	_, err = Normalize(types.Paper{Title: "   "})
	assert.Error(t, err)
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "papers.yml")
	require.NoError(t, os.WriteFile(path, []byte("- document_title: From file\n  authors: A. Author\n"), 0o644))

	papers, err := DecodeFile(path)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "A. Author", papers[0].Authors)

	_, err = DecodeFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
