package llm

// ChatRequest represents a chatcompletion request body.
type ChatRequest struct {
	Model             string    `json:"model"`              // e.g. "abab5.5-chat"
	Stream            bool      `json:"stream"`             // always true for the worker
	TokensToGenerate  int       `json:"tokens_to_generate"` // generation length cap
	MaskSensitiveInfo bool      `json:"mask_sensitive_info"`
	Messages          []Message `json:"messages"`

	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`

	// BotSetting is always empty; persona customization is not supported.
	BotSetting []BotSetting `json:"bot_setting"`
}

// BotSetting is a persona entry. The worker never populates it.
type BotSetting struct {
	BotName string `json:"bot_name"`
	Content string `json:"content"`
}

// GenerateParams is the body the host sends to the worker generation routes.
// Unrecognized fields are ignored.
type GenerateParams struct {
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Model       string   `json:"model,omitempty"`
}

// Sampling extracts the pass-through sampling parameters.
func (p GenerateParams) Sampling() SamplingParams {
	return SamplingParams{Temperature: p.Temperature, TopP: p.TopP}
}
