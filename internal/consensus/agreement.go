// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package consensus

import (
	"fmt"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// TotalRow is the name of the synthetic row that counts every paper with a
// known outcome.
const TotalRow = "total"

// Row is one bar series of the agreement chart.
type Row struct {
	Model string `json:"model" yaml:"model"`

	// Counts is indexed by the number of including agents.
	Counts []int `json:"counts" yaml:"counts"`
}

// Matrix is the agreement histogram: a total row followed by one row per
// consensus member, with columns 0..len(members).
type Matrix struct {
	Labels []string `json:"labels" yaml:"labels"`
	Rows   []Row    `json:"rows" yaml:"rows"`
}

// Row returns the row of the named model or the total row.
func (m Matrix) Row(model string) (Row, bool) {
	for _, r := range m.Rows {
		if r.Model == model {
			return r, true
		}
	}
	return Row{}, false
}

// Agreement builds the agreement matrix for the agents in set.
//
// A paper is known when some member discarded it or failed on it. The total
// row counts known papers at the column of their include count. A member's
// row counts the papers it included at that column. When nobody included a
// known paper, every member row is credited at column 0, including members
// that answered differently.
func Agreement(papers []types.Paper, set []string) Matrix {
	members := normalize(set)
	if len(members) == 0 {
		return Matrix{Labels: []string{}, Rows: []Row{}}
	}
	in := membership(members)
	cols := len(members) + 1

	m := Matrix{
		Labels: make([]string, cols),
		Rows:   make([]Row, 0, cols),
	}
	for i := range m.Labels {
		m.Labels[i] = fmt.Sprintf("%d including", i)
	}
	m.Rows = append(m.Rows, Row{Model: TotalRow, Counts: make([]int, cols)})
	index := make(map[string]int, len(members))
	for _, name := range members {
		index[name] = len(m.Rows)
		m.Rows = append(m.Rows, Row{Model: name, Counts: make([]int, cols)})
	}

	for _, p := range papers {
		v := tally(p, in)
		known := v.discard || v.failed
		col := len(v.including)

		if known {
			m.Rows[0].Counts[col]++
		}
		if col == 0 {
			if known {
				for i := 1; i < len(m.Rows); i++ {
					m.Rows[i].Counts[0]++
				}
			}
			continue
		}
		for _, name := range v.including {
			m.Rows[index[name]].Counts[col]++
		}
	}
	return m
}
