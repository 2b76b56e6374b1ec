// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunType distinguishes a run over the whole selection from a sample run
// over its first few papers.
type RunType int

const (
	RunFull   RunType = 0
	RunSample RunType = 1
)

// String returns "full" or "sample".
func (t RunType) String() string {
	if t == RunSample {
		return "sample"
	}
	return "full"
}

// Run is one execution of a prompt across a paper set and an agent set.
// A Run record is immutable once created.
type Run struct {
	// ID is the database identity of the run.
	ID int64 `json:"run_id" yaml:"run_id"`

	// Alias is the human-readable run name.
	Alias string `json:"alias" yaml:"alias"`

	// Type is RunFull or RunSample.
	Type RunType `json:"type" yaml:"type"`

	// Prompt is the operator prompt used for every classification call.
	Prompt string `json:"prompt" yaml:"prompt"`

	// Created is the creation timestamp.
	Created time.Time `json:"created" yaml:"created"`

	// Models lists the distinct agents that contributed responses. It is
	// derived when the run is loaded, not stored.
	Models []string `json:"models,omitempty" yaml:"models,omitempty"`
}
