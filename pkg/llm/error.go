// Package llm provides the wire representations of the MiniMax chat completion API
// and of the worker protocol spoken to the host controller.
package llm

// ErrorResponse represents an error returned by the worker's non-streaming routes.
type ErrorResponse struct {
	Error string `json:"error"`
}

// BaseResp is the in-band status block MiniMax attaches to its payloads.
// A zero StatusCode means success.
type BaseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}
