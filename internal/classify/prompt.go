// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// DefaultInstructions is appended to every operator prompt unless the
// configuration overrides it.
const DefaultInstructions = "Below is the title and abstract. You must only answer with INCLUDE or DISCARD and a 2-sentence reason of why."

var classificationPromptTmpl = template.Must(template.New("classification").Parse(`{{.Prompt}}

{{.Instructions}}

Title:
'{{.Title}}'.

Abstract:
'{{.Abstract}}'`))

// RenderPrompt assembles the text sent to the model for one paper.
func RenderPrompt(prompt, instructions string, paper types.Paper) (string, error) {
	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultInstructions
	}
	var buf bytes.Buffer
	err := classificationPromptTmpl.Execute(&buf, struct {
		Prompt       string
		Instructions string
		Title        string
		Abstract     string
	}{
		Prompt:       strings.TrimSpace(prompt),
		Instructions: strings.TrimSpace(instructions),
		Title:        paper.Title,
		Abstract:     paper.Abstract,
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}
