// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Classification is an agent's verdict on a single paper.
// The numeric values are part of the storage and API contract.
type Classification int

const (
	// ClassUnknown means no response has arrived from the agent yet. It is
	// never stored as a worker result.
	ClassUnknown Classification = 0
	ClassInclude Classification = 1
	ClassDiscard Classification = 2
	ClassError   Classification = 3
)

// String returns the lowercase label used in charts and exports.
func (c Classification) String() string {
	switch c {
	case ClassUnknown:
		return "unknown"
	case ClassInclude:
		return "include"
	case ClassDiscard:
		return "discard"
	case ClassError:
		return "error"
	default:
		return "invalid"
	}
}

// Valid reports whether c is one of the four defined classifications.
func (c Classification) Valid() bool {
	return c >= ClassUnknown && c <= ClassError
}

// ConsensusStatus is the run-scoped decision derived from a consensus set.
type ConsensusStatus int

const (
	ConsensusUnknown   ConsensusStatus = 0
	ConsensusIncluded  ConsensusStatus = 1
	ConsensusDiscarded ConsensusStatus = 2
)

// String returns the lowercase label of the status.
func (s ConsensusStatus) String() string {
	switch s {
	case ConsensusIncluded:
		return "included"
	case ConsensusDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// ModelResponse is one agent's answer for one paper within one run.
type ModelResponse struct {
	// ModelName is the agent that produced the response.
	ModelName string `json:"model_name" yaml:"model_name"`

	// Classification is the parsed verdict.
	Classification Classification `json:"classification" yaml:"classification"`

	// Answer is the free-text rationale, or the failure message when
	// Classification is ClassError.
	Answer string `json:"answer" yaml:"answer"`
}

// Paper holds the bibliographic record of a corpus entry together with the
// responses collected for it in the currently loaded run.
type Paper struct {
	// ID is the database identity of the paper.
	ID int64 `json:"paper_id" yaml:"paper_id"`

	Title            string `json:"document_title" yaml:"document_title"`
	PublicationTitle string `json:"publication_title,omitempty" yaml:"publication_title,omitempty"`
	Year             string `json:"year" yaml:"year"`
	Volume           string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue            string `json:"issue,omitempty" yaml:"issue,omitempty"`
	StartPage        string `json:"start_page,omitempty" yaml:"start_page,omitempty"`
	EndPage          string `json:"end_page,omitempty" yaml:"end_page,omitempty"`
	Abstract         string `json:"abstract" yaml:"abstract"`
	DOI              string `json:"doi" yaml:"doi"`
	Keywords         string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Publisher        string `json:"publisher,omitempty" yaml:"publisher,omitempty"`

	// Authors is the display form of the author list ("Jane Doe, John Roe").
	Authors string `json:"authors" yaml:"authors"`

	// Responses lists the agent responses in arrival order.
	Responses []ModelResponse `json:"model_responses,omitempty" yaml:"model_responses,omitempty"`

	// Consensus is derived from Responses and the active consensus set.
	// It is never persisted.
	Consensus ConsensusStatus `json:"consensus,omitempty" yaml:"consensus,omitempty"`
}

// Response returns the response recorded by the named agent, if any.
func (p Paper) Response(model string) (ModelResponse, bool) {
	for _, r := range p.Responses {
		if r.ModelName == model {
			return r, true
		}
	}
	return ModelResponse{}, false
}

// Clone returns a copy of p whose Responses slice does not alias p's.
func (p Paper) Clone() Paper {
	c := p
	if p.Responses != nil {
		c.Responses = make([]ModelResponse, len(p.Responses))
		copy(c.Responses, p.Responses)
	}
	return c
}
