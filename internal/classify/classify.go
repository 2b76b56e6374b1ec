// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify asks a language model whether a paper belongs to a
// research topic and turns the free-text answer into a classification.
package classify

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// ErrEmptyAnswer is returned when a backend responds without any content.
var ErrEmptyAnswer = errors.New("model returned an empty answer")

// Verdict is one agent's decision on one paper.
type Verdict struct {
	Classification types.Classification `json:"classification" yaml:"classification"`
	Answer         string               `json:"answer" yaml:"answer"`
}

// Classifier abstracts the model call so the orchestrator and tests can
// supply their own implementation. Calls may be slow and may fail.
type Classifier interface {
	Classify(ctx context.Context, paper types.Paper, prompt, agent string) (Verdict, error)
}

// Func adapts an ordinary function to the Classifier interface.
type Func func(ctx context.Context, paper types.Paper, prompt, agent string) (Verdict, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, paper types.Paper, prompt, agent string) (Verdict, error) {
	return f(ctx, paper, prompt, agent)
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripReasoning removes <think>…</think> blocks emitted by reasoning models.
func StripReasoning(answer string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(answer, ""))
}

// ParseAnswer derives a classification from a model answer. An answer that
// mentions only "include" is an include, one that mentions only "discard"
// is a discard; anything else is an error and keeps the text as the reason.
func ParseAnswer(answer string) Verdict {
	text := StripReasoning(answer)
	lower := strings.ToLower(text)

	c := types.ClassUnknown
	if strings.Contains(lower, "include") {
		c += types.ClassInclude
	}
	if strings.Contains(lower, "discard") {
		c += types.ClassDiscard
	}
	if c == types.ClassUnknown {
		c = types.ClassError
	}
	return Verdict{Classification: c, Answer: text}
}
