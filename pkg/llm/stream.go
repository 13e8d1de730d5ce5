package llm

import (
	"bytes"
	"encoding/json"
)

// StreamChunk represents the JSON payload of a single "data: " line of the
// chatcompletion event stream. A line is either a delta record (choices) or the
// final summary record (usage).
type StreamChunk struct {
	Created  int64           `json:"created,omitempty"`
	Model    string          `json:"model,omitempty"`
	Reply    string          `json:"reply,omitempty"`
	Choices  []Choice        `json:"choices,omitempty"`
	Usage    json.RawMessage `json:"usage,omitempty"`
	BaseResp *BaseResp       `json:"base_resp,omitempty"`
}

// Choice carries the incremental text of a delta record.
type Choice struct {
	Index        int    `json:"index"`
	Delta        string `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Usage is the token accounting carried by the summary record.
type Usage struct {
	TotalTokens int `json:"total_tokens"`
}

// IsSummary reports whether the chunk carries a non-empty usage field.
// Empty values (null, {}, 0, "", [], false) do not count.
func (c *StreamChunk) IsSummary() bool {
	return truthy(c.Usage)
}

// TotalTokens returns the usage token count, or 0 when absent or not an object.
func (c *StreamChunk) TotalTokens() int {
	var u Usage
	if err := json.Unmarshal(c.Usage, &u); err != nil {
		return 0
	}
	return u.TotalTokens
}

func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
