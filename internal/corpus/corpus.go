// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus reads paper lists for import into the survey database.
// Input is a JSON or YAML list of paper records, either bare or under a
// top-level "papers" key.
package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// NoAuthors is stored for papers imported without an author list.
const NoAuthors = "No authors available"

// Format names accepted by Decode.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type wrapper struct {
	Papers []types.Paper `json:"papers" yaml:"papers"`
}

// DecodeFile reads papers from path, choosing the format by extension.
func DecodeFile(path string) ([]types.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	format := ""
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = FormatJSON
	case ".yaml", ".yml":
		format = FormatYAML
	}
	papers, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return papers, nil
}

// Decode parses a paper list. An empty format sniffs JSON from the first
// non-blank byte and falls back to YAML. Every record is normalized.
func Decode(r io.Reader, format string) ([]types.Paper, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading papers: %w", err)
	}
	if format == "" {
		format = sniff(data)
	}

	var papers []types.Paper
	switch format {
	case FormatJSON:
		papers, err = decodeJSON(data)
	case FormatYAML:
		papers, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}

	out := make([]types.Paper, 0, len(papers))
	for i, p := range papers {
		n, err := Normalize(p)
		if err != nil {
			return nil, fmt.Errorf("paper %d: %w", i+1, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func sniff(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatYAML
}

func decodeJSON(data []byte) ([]types.Paper, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var w wrapper
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		return w.Papers, nil
	}
	var papers []types.Paper
	if err := json.Unmarshal(trimmed, &papers); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return papers, nil
}

func decodeYAML(data []byte) ([]types.Paper, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var papers []types.Paper
	if node.Content[0].Kind == yaml.MappingNode {
		var w wrapper
		if err := node.Decode(&w); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		return w.Papers, nil
	}
	if err := node.Decode(&papers); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return papers, nil
}

// Normalize trims every field, drops responses and ids, and defaults the
// author list. A paper without a title is rejected.
func Normalize(p types.Paper) (types.Paper, error) {
	n := types.Paper{
		Title:            strings.TrimSpace(p.Title),
		PublicationTitle: strings.TrimSpace(p.PublicationTitle),
		Year:             strings.TrimSpace(p.Year),
		Volume:           strings.TrimSpace(p.Volume),
		Issue:            strings.TrimSpace(p.Issue),
		StartPage:        strings.TrimSpace(p.StartPage),
		EndPage:          strings.TrimSpace(p.EndPage),
		Abstract:         strings.TrimSpace(p.Abstract),
		DOI:              strings.TrimSpace(p.DOI),
		Keywords:         strings.TrimSpace(p.Keywords),
		Publisher:        strings.TrimSpace(p.Publisher),
		Authors:          strings.TrimSpace(p.Authors),
	}
	if n.Title == "" {
		return types.Paper{}, fmt.Errorf("title is required")
	}
	if n.Authors == "" {
		n.Authors = NoAuthors
	}
	return n, nil
}
