package conversation

import "strings"

// Decode splits a flattened prompt into turns.
//
// The segment before the first separator (system message) and the segment after
// the last one (the empty answer slot) are template artifacts and are dropped.
// Every other segment must start with "USER:" or "BOT:"; the full prefix is
// stripped and the remainder trimmed. Consecutive turns from the same sender are
// kept as separate turns.
func Decode(prompt string, tpl Template) ([]Turn, error) {
	segments := strings.Split(prompt, tpl.Separator)
	if len(segments) < 3 {
		return []Turn{}, nil
	}

	userPrefix := tpl.UserRole + ":"
	botPrefix := tpl.BotRole + ":"

	turns := make([]Turn, 0, len(segments)-2)
	for _, seg := range segments[1 : len(segments)-1] {
		switch {
		case strings.HasPrefix(seg, userPrefix):
			turns = append(turns, Turn{Sender: User, Text: strings.TrimSpace(seg[len(userPrefix):])})
		case strings.HasPrefix(seg, botPrefix):
			turns = append(turns, Turn{Sender: Bot, Text: strings.TrimSpace(seg[len(botPrefix):])})
		default:
			return nil, &MalformedPromptError{Segment: seg}
		}
	}

	return turns, nil
}

// Flatten renders turns the way the host template does, ending with an empty
// slot for the bot's answer. Decode(Flatten(turns, tpl), tpl) returns turns as
// long as no text contains the separator or surrounding whitespace.
func Flatten(turns []Turn, tpl Template) string {
	var b strings.Builder
	b.WriteString(tpl.SystemMessage)
	b.WriteString(tpl.Separator)
	for _, t := range turns {
		b.WriteString(tpl.label(t.Sender))
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString(tpl.Separator)
	}
	b.WriteString(tpl.BotRole)
	b.WriteString(":")
	return b.String()
}
