package llm

// Sender types understood by the chatcompletion endpoint.
const (
	SenderUser = "USER"
	SenderBot  = "BOT"
)

// Message represents a single message in a conversation.
type Message struct {
	SenderType string `json:"sender_type"` // "USER" or "BOT"
	Text       string `json:"text"`
}
