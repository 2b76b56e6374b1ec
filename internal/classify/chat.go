// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dbvis-ukon/LLMSurver/internal/httputil"
	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// ModelSource resolves an agent name to its registered model.
type ModelSource interface {
	ModelByName(ctx context.Context, name string) (types.Model, error)
}

// KeySource supplies an API key for a model that has none stored.
type KeySource interface {
	Lookup(model string) string
}

// ChatBackend classifies papers through an OpenAI-compatible
// chat completions endpoint. The model record supplies the host, the key
// and extra request parameters.
type ChatBackend struct {
	Models       ModelSource
	Keys         KeySource
	Client       *http.Client
	Instructions string
	MaxTokens    int
	// Timeout bounds each call when positive.
	Timeout time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Classify sends the rendered prompt for paper to the agent's model and
// parses the answer.
func (b *ChatBackend) Classify(ctx context.Context, paper types.Paper, prompt, agent string) (Verdict, error) {
	model, err := b.Models.ModelByName(ctx, agent)
	if err != nil {
		return Verdict{}, fmt.Errorf("resolving model %s: %w", agent, err)
	}

	text, err := RenderPrompt(prompt, b.Instructions, paper)
	if err != nil {
		return Verdict{}, err
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	headers := map[string]string{}
	if key := b.apiKey(model); key != "" {
		headers["Authorization"] = "Bearer " + key
	}

	var resp chatResponse
	if err := httputil.PostJSON(ctx, b.Client, completionsURL(model.Host), headers, b.requestBody(model, text), &resp); err != nil {
		return Verdict{}, fmt.Errorf("calling %s: %w", model.Name, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Verdict{}, ErrEmptyAnswer
	}
	return ParseAnswer(resp.Choices[0].Message.Content), nil
}

func (b *ChatBackend) apiKey(m types.Model) string {
	if m.Key != "" {
		return m.Key
	}
	if b.Keys == nil {
		return ""
	}
	return b.Keys.Lookup(m.Name)
}

// requestBody merges the model parameters into the top-level request.
// Parameters never replace the model name or the messages.
func (b *ChatBackend) requestBody(m types.Model, text string) map[string]any {
	body := map[string]any{}
	if b.MaxTokens > 0 {
		body["max_tokens"] = b.MaxTokens
	}
	for _, p := range m.Parameters {
		if p.Name == "" {
			continue
		}
		body[p.Name] = ParameterValue(p.Value)
	}
	body["model"] = m.Name
	body["messages"] = []chatMessage{{Role: "user", Content: text}}
	return body
}

// ParameterValue converts a stored parameter string to the JSON value the
// endpoint expects: integers, floats and booleans are sent unquoted.
func ParameterValue(s string) any {
	v := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	switch strings.ToLower(v) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func completionsURL(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if strings.HasSuffix(host, "/chat/completions") {
		return host
	}
	return host + "/chat/completions"
}
