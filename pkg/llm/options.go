package llm

// SamplingParams are the generation parameters passed through from the host.
// Nil fields are omitted from the upstream request.
type SamplingParams struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}
