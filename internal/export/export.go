// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes the corpus or a loaded run as CSV, JSON or YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/dbvis-ukon/LLMSurver/internal/consensus"
	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts csv, json, yaml and yml, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case YAML:
		return "application/yaml"
	default:
		return "text/csv"
	}
}

// Document is the exported content. A nil Run exports the bare corpus.
type Document struct {
	Run        *types.Run            `json:"run,omitempty" yaml:"run,omitempty"`
	Consensus  []string              `json:"consensus_set,omitempty" yaml:"consensus_set,omitempty"`
	Statistics *consensus.Statistics `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	Papers     []types.Paper         `json:"papers" yaml:"papers"`
}

// Write encodes doc in the given format.
func Write(w io.Writer, f Format, doc Document) error {
	if doc.Papers == nil {
		doc.Papers = []types.Paper{}
	}
	switch f {
	case CSV:
		return WriteCSV(w, doc)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported export format %q", f)
}

var corpusHeader = []string{
	"paper_id", "document_title", "publication_title", "year", "volume", "issue",
	"start_page", "end_page", "abstract", "doi", "keywords", "publisher", "authors",
}

// WriteCSV writes one line per paper. Run exports add the responses as a
// JSON array and the consensus status.
func WriteCSV(w io.Writer, doc Document) error {
	withRun := doc.Run != nil
	header := corpusHeader
	if withRun {
		header = append(append([]string{}, corpusHeader...), "model_responses", "consensus")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, p := range doc.Papers {
		record := []string{
			strconv.FormatInt(p.ID, 10), p.Title, p.PublicationTitle, p.Year, p.Volume, p.Issue,
			p.StartPage, p.EndPage, p.Abstract, p.DOI, p.Keywords, p.Publisher, p.Authors,
		}
		if withRun {
			responses := p.Responses
			if responses == nil {
				responses = []types.ModelResponse{}
			}
			data, err := json.Marshal(responses)
			if err != nil {
				return fmt.Errorf("marshaling responses of paper %d: %w", p.ID, err)
			}
			record = append(record, string(data), strconv.Itoa(int(p.Consensus)))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing paper %d: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename derives a download name from the run alias.
func Filename(alias string, f Format) string {
	name := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(alias), "_"), "_.")
	if name == "" {
		name = "papers"
	}
	return name + "." + string(f)
}
