// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"strings"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// DefaultSampleSize is the number of leading papers a sample run covers
// when the request does not say otherwise.
const DefaultSampleSize = 5

// ValidationError reports a precondition a run request failed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Request describes one run to execute.
type Request struct {
	RunID  int64
	Name   string
	Prompt string

	// Papers are classified in this order by every agent.
	Papers []types.Paper

	// Agents are model names. Blank and repeated names are ignored.
	Agents []string

	// Sample restricts the run to the first SampleSize papers.
	Sample     bool
	SampleSize int
}

// Validate checks the preconditions in a fixed order and returns the
// first one that fails.
func (r Request) Validate() error {
	switch {
	case len(r.Papers) == 0:
		return &ValidationError{Field: "papers", Message: "upload papers first"}
	case strings.TrimSpace(r.Prompt) == "":
		return &ValidationError{Field: "prompt", Message: "prompt is required"}
	case len(r.AgentNames()) == 0:
		return &ValidationError{Field: "agents", Message: "select at least one model"}
	case strings.TrimSpace(r.Name) == "":
		return &ValidationError{Field: "name", Message: "run name is required"}
	}
	return nil
}

// Target is the number of classification attempts the run will make.
func (r Request) Target() int {
	return len(r.AgentNames()) * len(r.papers())
}

// RunType reports whether the request is a full or a sample run.
func (r Request) RunType() types.RunType {
	if r.Sample {
		return types.RunSample
	}
	return types.RunFull
}

func (r Request) papers() []types.Paper {
	if !r.Sample {
		return r.Papers
	}
	n := r.SampleSize
	if n <= 0 {
		n = DefaultSampleSize
	}
	return r.Papers[:min(n, len(r.Papers))]
}

// AgentNames returns the distinct, trimmed agent names in request order.
func (r Request) AgentNames() []string {
	seen := make(map[string]bool, len(r.Agents))
	var out []string
	for _, a := range r.Agents {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
