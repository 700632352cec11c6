package format

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"clawlog/internal/model"
)

// userMarker prefixes user prompts relayed through the delivery channel.
const userMarker = "[User Message]"

// MessageFormatter renders live records as single display lines.
type MessageFormatter struct {
	Width       int // 0 means 80
	Color       bool
	ShowSession bool
}

// RoleBadge returns the uncolored badge text for a record.
func RoleBadge(msg model.Message) string {
	switch {
	case msg.Role == model.RoleUser:
		return "USER"
	case msg.Model == model.MirrorModel:
		return "AI(mirror)"
	case msg.Model != "":
		return fmt.Sprintf("AI(%s)", msg.Model)
	default:
		return "AI(unknown)"
	}
}

// Line renders one record: local timestamp, agent tag, short session id,
// role badge, cost when positive, and the flattened message text.
func (f MessageFormatter) Line(msg model.Message) string {
	width := f.Width
	if width <= 0 {
		width = 80
	}
	limit := width - 50
	if limit < 40 {
		limit = 40
	}

	var b strings.Builder
	b.WriteString(colorize(f.Color, ansiDim, msg.Timestamp.Local().Format("15:04:05")))
	b.WriteString(" ")
	b.WriteString(colorize(f.Color, ansiAgent, "["+msg.Agent+"]"))
	b.WriteString(" ")
	if f.ShowSession {
		b.WriteString(colorize(f.Color, ansiDim, "("+msg.ShortSession()+")"))
		b.WriteString(" ")
	}
	b.WriteString(colorize(f.Color, badgeColor(msg), RoleBadge(msg)))
	b.WriteString(" ")
	if msg.HasCost() {
		b.WriteString(colorize(f.Color, ansiCost, fmt.Sprintf("$%.4f", *msg.Cost)))
		b.WriteString(" ")
	}
	b.WriteString(flatten(msg, limit))
	return b.String()
}

// Header renders the heading line the session view places above each
// message body: date-qualified local timestamp, agent tag, role badge, and
// cost when positive.
func (f MessageFormatter) Header(msg model.Message) string {
	var b strings.Builder
	b.WriteString(colorize(f.Color, ansiDim, msg.Timestamp.Local().Format("2006-01-02 15:04:05")))
	b.WriteString(" ")
	b.WriteString(colorize(f.Color, ansiAgent, "["+msg.Agent+"]"))
	b.WriteString(" ")
	b.WriteString(colorize(f.Color, badgeColor(msg), RoleBadge(msg)))
	if msg.HasCost() {
		b.WriteString(" ")
		b.WriteString(colorize(f.Color, ansiCost, fmt.Sprintf("$%.4f", *msg.Cost)))
	}
	return b.String()
}

// Banner renders the bold heading printed before following starts.
func (f MessageFormatter) Banner(text string) string {
	return colorize(f.Color, ansiBold, text)
}

// Notice renders informational chrome around the live stream.
func (f MessageFormatter) Notice(text string) string {
	return colorize(f.Color, ansiDim, text)
}

func badgeColor(msg model.Message) string {
	switch {
	case msg.Role == model.RoleUser:
		return ansiUser
	case msg.Model == model.MirrorModel:
		return ansiMirror
	default:
		return ansiAssistant
	}
}

// flatten collapses a message body to one truncated display line.
func flatten(msg model.Message, limit int) string {
	text := msg.Text
	if msg.Role == model.RoleUser && strings.HasPrefix(text, "[") {
		if idx := strings.Index(text, userMarker); idx >= 0 {
			text = strings.TrimSpace(text[idx+len(userMarker):])
		}
	}
	text = strings.ReplaceAll(text, "\n", " ↵ ")
	return runewidth.Truncate(text, limit, "…")
}
