package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles for the info report.
var (
	infoTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	infoLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	infoCostStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// Info aggregates the environment overview shown by the info report.
type Info struct {
	Root              string  `json:"root"`
	Agents            int     `json:"agents"`
	Sessions          int     `json:"sessions"`
	DeletedSessions   int     `json:"deleted_sessions"`
	Messages          int     `json:"messages"`
	UserMessages      int     `json:"user_messages"`
	AssistantMessages int     `json:"assistant_messages"`
	TotalCost         float64 `json:"total_cost"`
	CachePath         string  `json:"cache_path,omitempty"`
	CachedSessions    int     `json:"cached_sessions"`
}

// WriteInfo renders the report as styled key/value lines, or as JSON.
func WriteInfo(w io.Writer, info Info, format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		writeInfoText(w, info)
		return nil
	case "json":
		return writeJSON(w, info)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeInfoText(w io.Writer, info Info) {
	fmt.Fprintln(w, infoTitleStyle.Render("clawlog overview")) //nolint:errcheck

	kv := func(label, value string) {
		padded := fmt.Sprintf("%-18s", label+":")
		fmt.Fprintf(w, "%s %s\n", infoLabelStyle.Render(padded), value) //nolint:errcheck
	}
	kv("Agents root", info.Root)
	kv("Agents", fmt.Sprintf("%d", info.Agents))
	kv("Sessions", fmt.Sprintf("%d", info.Sessions))
	kv("Deleted sessions", fmt.Sprintf("%d", info.DeletedSessions))
	kv("Messages", fmt.Sprintf("%d (%d user / %d assistant)",
		info.Messages, info.UserMessages, info.AssistantMessages))
	kv("Total cost", infoCostStyle.Render(fmt.Sprintf("$%.4f", info.TotalCost)))
	if info.CachePath != "" {
		kv("Cache", fmt.Sprintf("%s (%d sessions)", info.CachePath, info.CachedSessions))
	}
}
