package llm

// Frame is one unit of the worker stream: the full text generated so far.
type Frame struct {
	ErrorCode int    `json:"error_code"`
	Text      string `json:"text"`
}

// Worker error codes, shared with the host controller.
const (
	ErrorCodeOK             = 0
	ErrorCodeValidation     = 40001
	ErrorCodeInternal       = 50001
	ErrorCodeEngineOverload = 42903
)

// StatusResponse is returned by the worker status route.
type StatusResponse struct {
	ModelNames  []string `json:"model_names"`
	Speed       int      `json:"speed"`
	QueueLength int      `json:"queue_length"`
}

// CountTokenResponse is returned by the count_token route.
type CountTokenResponse struct {
	Count     int `json:"count"`
	ErrorCode int `json:"error_code"`
}

// ModelDetailsResponse is returned by the model_details route.
type ModelDetailsResponse struct {
	ContextLength int `json:"context_length"`
}
