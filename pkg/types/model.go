// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Model is a registered classification agent reachable through an
// OpenAI-compatible chat completions endpoint.
type Model struct {
	ID int64 `json:"model_id" yaml:"model_id"`

	// Host is the API base URL (e.g. "https://api.openai.com/v1").
	Host string `json:"host" yaml:"host"`

	// Name is the model identifier sent to the endpoint. It is unique and
	// doubles as the agent name in run responses.
	Name string `json:"name" yaml:"name"`

	// Key is the bearer token. Empty falls back to the secrets directory.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// Parameters are passed through to the chat request body.
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Parameter is a single name/value request option such as temperature.
type Parameter struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}
