// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package consensus derives inclusion decisions and agreement statistics
// from the responses of a chosen subset of agents.
//
// Every function here is pure: inputs are never modified and repeated calls
// with the same papers and consensus set return equal results.
package consensus

import "github.com/dbvis-ukon/LLMSurver/pkg/types"

// Statistics summarizes the consensus over a paper set.
type Statistics struct {
	Total      int `json:"total" yaml:"total"`
	Classified int `json:"classified" yaml:"classified"`
	Included   int `json:"included" yaml:"included"`
	Discarded  int `json:"discarded" yaml:"discarded"`

	// IncludedBy[k-1] counts included papers with exactly k including agents.
	IncludedBy []int `json:"includedBy" yaml:"included_by"`
}

// Result holds the per-paper statuses and the aggregate statistics.
type Result struct {
	Papers     []types.Paper `json:"papers" yaml:"papers"`
	Statistics Statistics    `json:"statistics" yaml:"statistics"`
}

// Empty returns the statistics of a paper set with no consensus applied.
func Empty(total int) Statistics {
	return Statistics{Total: total, IncludedBy: []int{}}
}

// Compute assigns a consensus status to every paper from the responses of
// the agents in set. Inclusion by any member wins over discard votes; a
// paper nobody included or discarded stays unknown.
func Compute(papers []types.Paper, set []string) Result {
	members := normalize(set)
	out := make([]types.Paper, len(papers))

	if len(members) == 0 {
		for i, p := range papers {
			out[i] = p.Clone()
			out[i].Consensus = types.ConsensusUnknown
		}
		return Result{Papers: out, Statistics: Empty(len(papers))}
	}

	in := membership(members)
	stats := Statistics{Total: len(papers), IncludedBy: make([]int, len(members))}

	for i, p := range papers {
		v := tally(p, in)
		out[i] = p.Clone()
		switch {
		case len(v.including) > 0:
			out[i].Consensus = types.ConsensusIncluded
			stats.Included++
			stats.IncludedBy[len(v.including)-1]++
		case v.discard:
			out[i].Consensus = types.ConsensusDiscarded
			stats.Discarded++
		default:
			out[i].Consensus = types.ConsensusUnknown
		}
	}
	stats.Classified = stats.Included + stats.Discarded

	return Result{Papers: out, Statistics: stats}
}

// Status returns the consensus status of a single paper.
func Status(p types.Paper, set []string) types.ConsensusStatus {
	members := normalize(set)
	if len(members) == 0 {
		return types.ConsensusUnknown
	}
	v := tally(p, membership(members))
	switch {
	case len(v.including) > 0:
		return types.ConsensusIncluded
	case v.discard:
		return types.ConsensusDiscarded
	default:
		return types.ConsensusUnknown
	}
}

// votes is what the consensus members said about one paper.
type votes struct {
	including []string
	discard   bool
	failed    bool
}

// tally collects the votes of members on p. An agent counts once even if
// the paper carries more than one response from it.
func tally(p types.Paper, members map[string]bool) votes {
	var v votes
	counted := make(map[string]bool, len(members))
	for _, r := range p.Responses {
		if !members[r.ModelName] || counted[r.ModelName] {
			continue
		}
		counted[r.ModelName] = true
		switch r.Classification {
		case types.ClassInclude:
			v.including = append(v.including, r.ModelName)
		case types.ClassDiscard:
			v.discard = true
		case types.ClassError:
			v.failed = true
		}
	}
	return v
}

// normalize drops empty and repeated names, keeping first occurrences.
func normalize(set []string) []string {
	seen := make(map[string]bool, len(set))
	out := make([]string, 0, len(set))
	for _, name := range set {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func membership(members []string) map[string]bool {
	m := make(map[string]bool, len(members))
	for _, name := range members {
		m[name] = true
	}
	return m
}
