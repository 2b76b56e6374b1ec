// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package consensus

import "github.com/dbvis-ukon/LLMSurver/pkg/types"

// AgentCounts tallies one agent's responses per classification, indexed by
// the classification value (unknown, include, discard, error).
type AgentCounts struct {
	Model  string `json:"model" yaml:"model"`
	Counts [4]int `json:"counts" yaml:"counts"`
}

// Distribution counts the classifications of each member of set, in the
// order agents first appear among the responses.
func Distribution(papers []types.Paper, set []string) []AgentCounts {
	in := membership(normalize(set))
	out := []AgentCounts{}
	index := map[string]int{}

	for _, p := range papers {
		for _, r := range p.Responses {
			if !in[r.ModelName] || !r.Classification.Valid() {
				continue
			}
			i, ok := index[r.ModelName]
			if !ok {
				i = len(out)
				index[r.ModelName] = i
				out = append(out, AgentCounts{Model: r.ModelName})
			}
			out[i].Counts[r.Classification]++
		}
	}
	return out
}
