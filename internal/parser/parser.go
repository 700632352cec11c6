// Package parser turns raw session log lines into display-ready messages.
package parser

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"clawlog/internal/model"
)

type rawEntry struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

type messagePayload struct {
	Role       string          `json:"role"`
	Model      string          `json:"model"`
	Provider   string          `json:"provider"`
	StopReason string          `json:"stopReason"`
	Content    json.RawMessage `json:"content"`
	Usage      *usagePayload   `json:"usage"`
}

type usagePayload struct {
	Cost *costPayload `json:"cost"`
}

type costPayload struct {
	Total *float64 `json:"total"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ParseLine decodes one session log line into a Message. The second return
// is false for anything that is not a displayable user or assistant turn:
// undecodable lines, non-message entries, foreign roles, empty text.
// Concurrent writers and schema drift make all of those steady-state
// conditions, so none of them is an error.
func ParseLine(line []byte, agent, sessionID string) (model.Message, bool) {
	var entry rawEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return model.Message{}, false
	}
	if entry.Type != "message" || len(entry.Message) == 0 {
		return model.Message{}, false
	}

	var payload messagePayload
	if err := json.Unmarshal(entry.Message, &payload); err != nil {
		return model.Message{}, false
	}

	role := model.Role(payload.Role)
	if role != model.RoleUser && role != model.RoleAssistant {
		return model.Message{}, false
	}

	text := decodeText(payload.Content)
	if text == "" {
		return model.Message{}, false
	}

	ts, err := parseTimestamp(entry.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}

	var cost *float64
	if payload.Usage != nil && payload.Usage.Cost != nil && payload.Usage.Cost.Total != nil {
		total := *payload.Usage.Cost.Total
		cost = &total
	}

	// The scanner reuses its buffer, so the raw payload must be a copy.
	raw := make(json.RawMessage, len(line))
	copy(raw, line)

	return model.Message{
		Timestamp:  ts,
		Role:       role,
		Agent:      agent,
		SessionID:  sessionID,
		Model:      payload.Model,
		Provider:   payload.Provider,
		Text:       text,
		Cost:       cost,
		StopReason: payload.StopReason,
		Raw:        raw,
	}, true
}

// IterateMessages scans the session file at path and calls fn for every
// line that parses into a message. Lines that do not parse are skipped.
func IterateMessages(path, agent, sessionID string, fn func(model.Message) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	scanner := NewScanner(file)
	for scanner.Scan() {
		msg, ok := ParseLine(scanner.Bytes(), agent, sessionID)
		if !ok {
			continue
		}
		if err := fn(msg); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan session: %w", err)
	}

	return nil
}

// NewScanner returns a line scanner sized for large session payloads.
func NewScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	const maxCapacity = 8 * 1024 * 1024
	buf := make([]byte, 1024)
	scanner.Buffer(buf, maxCapacity)
	return scanner
}

// decodeText extracts display text from a message content payload. Content
// is either a plain string or an array whose elements are text blocks or
// bare strings; contributions join with newlines and the result is trimmed.
func decodeText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	// Try as string first (simple message)
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return ""
	}

	var parts []string
	for _, elem := range elems {
		var str string
		if err := json.Unmarshal(elem, &str); err == nil {
			parts = append(parts, str)
			continue
		}
		var block contentBlock
		if err := json.Unmarshal(elem, &block); err != nil {
			continue
		}
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("missing timestamp")
	}

	// Try RFC3339Nano first
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}

	return time.Parse(time.RFC3339, value)
}
