// Package format renders messages, session listings, and reports for
// terminal output.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"clawlog/internal/store"
)

// WriteSessions writes session summaries to w in the requested format.
func WriteSessions(w io.Writer, items []store.SessionSummary, includeHeader bool, format string) error {
	switch strings.ToLower(format) {
	case "", "table":
		return writeSessionsTable(w, items, includeHeader)
	case "plain":
		return writeSessionsPlain(w, items, includeHeader)
	case "json":
		return writeJSON(w, items)
	case "jsonl":
		return writeSessionsJSONL(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeSessionsTable(w io.Writer, items []store.SessionSummary, includeHeader bool) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = true
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 6, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 80},
	})

	if includeHeader {
		tw.AppendHeader(table.Row{"Modified", "Agent", "Session ID", "Messages", "Cost", "First Prompt"})
	}

	for _, item := range items {
		tw.AppendRow(table.Row{
			item.Modified.Format(time.RFC3339),
			item.Agent,
			sessionLabel(item),
			item.Messages,
			formatCost(item.TotalCost),
			escapeNewlines(item.FirstPrompt),
		})
	}

	if len(items) == 0 {
		tw.AppendRow(table.Row{"-", "-", "(no sessions)", 0, "-", "-"})
	}

	_ = tw.Render()
	return nil
}

func writeSessionsPlain(w io.Writer, items []store.SessionSummary, includeHeader bool) error {
	if includeHeader {
		if _, err := fmt.Fprintln(w, "modified\tagent\tsession_id\tmessages\tcost\tfirst_prompt"); err != nil {
			return err
		}
	}

	for _, item := range items {
		line := fmt.Sprintf(
			"%s\t%s\t%s\t%d\t%s\t%s",
			item.Modified.Format(time.RFC3339),
			item.Agent,
			sessionLabel(item),
			item.Messages,
			formatCost(item.TotalCost),
			escapeNewlines(item.FirstPrompt),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeSessionsJSONL(w io.Writer, items []store.SessionSummary) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

// WriteAgents writes per-agent rollups to w in the requested format.
func WriteAgents(w io.Writer, items []store.AgentInfo, includeHeader bool, format string) error {
	switch strings.ToLower(format) {
	case "", "table":
		return writeAgentsTable(w, items, includeHeader)
	case "plain":
		return writeAgentsPlain(w, items, includeHeader)
	case "json":
		return writeJSON(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeAgentsTable(w io.Writer, items []store.AgentInfo, includeHeader bool) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
	})

	if includeHeader {
		tw.AppendHeader(table.Row{"Agent", "Sessions", "Last Activity"})
	}

	for _, item := range items {
		tw.AppendRow(table.Row{item.Agent, item.Sessions, formatActivity(item.LastActivity)})
	}

	if len(items) == 0 {
		tw.AppendRow(table.Row{"(no agents)", 0, "-"})
	}

	_ = tw.Render()
	return nil
}

func writeAgentsPlain(w io.Writer, items []store.AgentInfo, includeHeader bool) error {
	if includeHeader {
		if _, err := fmt.Fprintln(w, "agent\tsessions\tlast_activity"); err != nil {
			return err
		}
	}

	for _, item := range items {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%s\n", item.Agent, item.Sessions, formatActivity(item.LastActivity)); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sessionLabel(item store.SessionSummary) string {
	if item.Deleted {
		return item.SessionID + " (deleted)"
	}
	return item.SessionID
}

func formatActivity(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func formatCost(cost float64) string {
	if cost <= 0 {
		return "-"
	}
	return fmt.Sprintf("$%.4f", cost)
}

func escapeNewlines(text string) string {
	return strings.ReplaceAll(text, "\n", "\\n")
}
