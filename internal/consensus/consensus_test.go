// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package consensus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// --- test helpers ---

func resp(model string, c types.Classification) types.ModelResponse {
	return types.ModelResponse{ModelName: model, Classification: c, Answer: c.String()}
}

func paper(id int64, responses ...types.ModelResponse) types.Paper {
	return types.Paper{ID: id, Title: "paper", Responses: responses}
}

func statuses(r Result) []types.ConsensusStatus {
	out := make([]types.ConsensusStatus, len(r.Papers))
	for i, p := range r.Papers {
		out[i] = p.Consensus
	}
	return out
}

// --- Compute ---

func TestComputeIncludeWinsOverDiscard(t *testing.T) {
	papers := []types.Paper{paper(1, resp("A", types.ClassInclude), resp("B", types.ClassDiscard))}

	r := Compute(papers, []string{"A", "B"})

	assert.Equal(t, types.ConsensusIncluded, r.Papers[0].Consensus)
	assert.Equal(t, Statistics{Total: 1, Classified: 1, Included: 1, Discarded: 0, IncludedBy: []int{1, 0}}, r.Statistics)
}

func TestComputeAllDiscard(t *testing.T) {
	papers := []types.Paper{paper(2, resp("A", types.ClassDiscard), resp("B", types.ClassDiscard))}

	r := Compute(papers, []string{"A", "B"})

	assert.Equal(t, types.ConsensusDiscarded, r.Papers[0].Consensus)
	assert.Equal(t, 1, r.Statistics.Discarded)
	assert.Equal(t, 1, r.Statistics.Classified)
	assert.Equal(t, []int{0, 0}, r.Statistics.IncludedBy)
}

func TestComputeNoResponsesIsUnknown(t *testing.T) {
	papers := []types.Paper{paper(3)}

	r := Compute(papers, []string{"A", "B"})

	assert.Equal(t, types.ConsensusUnknown, r.Papers[0].Consensus)
	assert.Equal(t, 0, r.Statistics.Classified)
	assert.Equal(t, 1, r.Statistics.Total)
}

func TestComputeTable(t *testing.T) {
	papers := []types.Paper{
		paper(1, resp("A", types.ClassInclude), resp("B", types.ClassInclude), resp("C", types.ClassInclude)),
		paper(2, resp("A", types.ClassInclude), resp("B", types.ClassDiscard), resp("C", types.ClassInclude)),
		paper(3, resp("A", types.ClassDiscard), resp("B", types.ClassError), resp("C", types.ClassInclude)),
		paper(4, resp("A", types.ClassError), resp("B", types.ClassError)),
		paper(5, resp("A", types.ClassUnknown), resp("B", types.ClassDiscard)),
	}

	tests := []struct {
		name   string
		set    []string
		want   []types.ConsensusStatus
		wantBy []int
	}{
		{
			name:   "all agents",
			set:    []string{"A", "B", "C"},
			want:   []types.ConsensusStatus{1, 1, 1, 0, 2},
			wantBy: []int{1, 1, 1},
		},
		{
			name:   "only A",
			set:    []string{"A"},
			want:   []types.ConsensusStatus{1, 1, 2, 0, 0},
			wantBy: []int{2},
		},
		{
			name:   "A and B",
			set:    []string{"A", "B"},
			want:   []types.ConsensusStatus{1, 1, 2, 0, 2},
			wantBy: []int{1, 1},
		},
		{
			name:   "member without responses",
			set:    []string{"B", "Z"},
			want:   []types.ConsensusStatus{1, 2, 0, 0, 2},
			wantBy: []int{1, 0},
		},
		{
			name:   "duplicates collapse",
			set:    []string{"C", "C"},
			want:   []types.ConsensusStatus{1, 1, 1, 0, 0},
			wantBy: []int{3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Compute(papers, tt.set)
			assert.Equal(t, tt.want, statuses(r))
			assert.Equal(t, tt.wantBy, r.Statistics.IncludedBy)
			assert.Equal(t, r.Statistics.Included+r.Statistics.Discarded, r.Statistics.Classified)
			sum := 0
			for _, n := range r.Statistics.IncludedBy {
				sum += n
			}
			assert.Equal(t, r.Statistics.Included, sum)
		})
	}
}

func TestComputeEmptySetResets(t *testing.T) {
	papers := []types.Paper{
		paper(1, resp("A", types.ClassInclude)),
		paper(2, resp("A", types.ClassDiscard)),
		paper(3),
	}

	prior := Compute(papers, []string{"A"})
	require.Equal(t, 2, prior.Statistics.Classified)

	r := Compute(prior.Papers, nil)

	assert.Equal(t, Statistics{Total: 3, IncludedBy: []int{}}, r.Statistics)
	for _, p := range r.Papers {
		assert.Equal(t, types.ConsensusUnknown, p.Consensus)
	}
}

func TestComputeIsPure(t *testing.T) {
	papers := []types.Paper{
		paper(1, resp("A", types.ClassInclude), resp("B", types.ClassDiscard)),
		paper(2, resp("B", types.ClassInclude)),
		paper(3, resp("A", types.ClassError)),
	}
	set := []string{"A", "B"}
	before, err := json.Marshal(papers)
	require.NoError(t, err)

	first, err := json.Marshal(Compute(papers, set))
	require.NoError(t, err)
	second, err := json.Marshal(Compute(papers, set))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	after, err := json.Marshal(papers)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "input papers were modified")
	assert.Equal(t, []string{"A", "B"}, set)
}

func TestComputeStatisticsJSONShape(t *testing.T) {
	r := Compute([]types.Paper{paper(1)}, nil)
	data, err := json.Marshal(r.Statistics)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":1,"classified":0,"included":0,"discarded":0,"includedBy":[]}`, string(data))
}

func TestStatusMatchesCompute(t *testing.T) {
	papers := []types.Paper{
		paper(1, resp("A", types.ClassInclude), resp("B", types.ClassDiscard)),
		paper(2, resp("A", types.ClassDiscard)),
		paper(3, resp("A", types.ClassError)),
	}
	set := []string{"A", "B"}
	r := Compute(papers, set)
	for i, p := range papers {
		assert.Equal(t, r.Papers[i].Consensus, Status(p, set))
	}
	assert.Equal(t, types.ConsensusUnknown, Status(papers[0], nil))
}
