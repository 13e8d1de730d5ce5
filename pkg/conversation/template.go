// Package conversation decodes flattened chat prompts back into role-tagged turns.
//
// A flattened prompt is produced by the host's conversation template: a system
// message, then every turn as "ROLE: text" joined by a fixed separator, then an
// empty slot for the role that should answer next. For the MiniMax template:
//
//	"\n### USER: hi\n### BOT: hello\n### USER: how are you?\n### BOT:"
package conversation

import "github.com/papercomputeco/minimax-worker/pkg/llm"

// Sender identifies who produced a turn.
type Sender string

const (
	User Sender = llm.SenderUser
	Bot  Sender = llm.SenderBot
)

// Turn is one role-tagged message of a decoded conversation.
type Turn struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Message converts the turn to its wire form.
func (t Turn) Message() llm.Message {
	return llm.Message{SenderType: string(t.Sender), Text: t.Text}
}

// Messages converts turns to their wire form, preserving order.
func Messages(turns []Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, t.Message())
	}
	return msgs
}

// Template describes how a flattened prompt encodes turns. It is a read-only
// value; build it once at startup and pass it to whatever needs it.
type Template struct {
	Name          string `json:"name"`
	SystemMessage string `json:"system_message"`
	UserRole      string `json:"user_role"`
	BotRole       string `json:"bot_role"`
	Separator     string `json:"sep"`
	StopMarker    string `json:"stop_str"`
}

// MiniMax returns the template used by the MiniMax worker.
func MiniMax(name string) Template {
	return Template{
		Name:       name,
		UserRole:   llm.SenderUser,
		BotRole:    llm.SenderBot,
		Separator:  "\n### ",
		StopMarker: "###",
	}
}

func (t Template) label(s Sender) string {
	if s == Bot {
		return t.BotRole
	}
	return t.UserRole
}
