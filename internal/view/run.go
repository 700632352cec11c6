// Package view renders the full transcript of one session file.
package view

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-isatty"

	"clawlog/internal/format"
	"clawlog/internal/model"
	"clawlog/internal/parser"
)

// Options defines the configurable parameters for rendering a session.
type Options struct {
	Path         string
	Agent        string
	SessionID    string
	Format       string // text, raw, json, or jsonl; empty means text
	Wrap         int    // 0 means the terminal width
	Last         int    // keep only the final N messages; 0 means all
	ForceColor   bool
	ForceNoColor bool
	Out          io.Writer
	OutFile      *os.File // non-nil enables width detection and paging
}

// Run renders the session at opts.Path according to the options.
func Run(opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	msgs, err := collect(opts)
	if err != nil {
		return err
	}

	switch strings.ToLower(opts.Format) {
	case "", "text":
		useColor := format.ResolveColor(opts.ForceColor, opts.ForceNoColor, opts.Out)
		width := format.DetermineWidth(opts.OutFile, opts.Wrap)
		lines := renderText(msgs, width, useColor)
		if opts.OutFile != nil && isatty.IsTerminal(opts.OutFile.Fd()) {
			return pipeThroughPager(lines, useColor)
		}
		return writeLines(opts.Out, lines)

	case "raw":
		for _, msg := range msgs {
			if _, err := fmt.Fprintf(opts.Out, "%s\n", msg.Raw); err != nil {
				return err
			}
		}
		return nil

	case "json":
		enc := json.NewEncoder(opts.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(msgs)

	case "jsonl":
		enc := json.NewEncoder(opts.Out)
		for _, msg := range msgs {
			if err := enc.Encode(msg); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

// collect scans the session file, keeping every message or only the final
// Last of them through a fixed-size ring.
func collect(opts Options) ([]model.Message, error) {
	if opts.Last > 0 {
		ring := newMessageRing(opts.Last)
		err := parser.IterateMessages(opts.Path, opts.Agent, opts.SessionID, func(msg model.Message) error {
			ring.push(msg)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return ring.slice(), nil
	}

	msgs := make([]model.Message, 0)
	err := parser.IterateMessages(opts.Path, opts.Agent, opts.SessionID, func(msg model.Message) error {
		msgs = append(msgs, msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// renderText lays out each message as a header line followed by the
// word-wrapped body, with a blank line between messages.
func renderText(msgs []model.Message, width int, useColor bool) []string {
	f := format.MessageFormatter{Width: width, Color: useColor}

	bodyWidth := width - 2
	if bodyWidth < 20 {
		bodyWidth = 20
	}

	lines := make([]string, 0, len(msgs)*4)
	for idx, msg := range msgs {
		if idx > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, f.Header(msg))
		for _, para := range strings.Split(msg.Text, "\n") {
			for _, line := range wrapText(para, bodyWidth) {
				lines = append(lines, "  "+line)
			}
		}
	}
	return lines
}

type messageRing struct {
	data   []model.Message
	start  int
	length int
}

func newMessageRing(capacity int) *messageRing {
	if capacity <= 0 {
		return &messageRing{}
	}
	return &messageRing{data: make([]model.Message, capacity)}
}

func (r *messageRing) push(msg model.Message) {
	if len(r.data) == 0 {
		return
	}
	idx := (r.start + r.length) % len(r.data)
	r.data[idx] = msg
	if r.length < len(r.data) {
		r.length++
		return
	}
	r.start = (r.start + 1) % len(r.data)
}

func (r *messageRing) slice() []model.Message {
	if r.length == 0 {
		return nil
	}
	out := make([]model.Message, r.length)
	for i := 0; i < r.length; i++ {
		out[i] = r.data[(r.start+i)%len(r.data)]
	}
	return out
}

func pipeThroughPager(lines []string, colorEnabled bool) error {
	text := strings.Join(lines, "\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	pagerCmd := os.Getenv("PAGER")
	var cmd *exec.Cmd
	if pagerCmd == "" {
		args := []string{"less"}
		if colorEnabled {
			args = append(args, "-R")
		}
		cmd = exec.Command(args[0], args[1:]...) // #nosec G204
	} else {
		cmd = exec.Command("sh", "-c", pagerCmd) // #nosec G204
	}

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create pager pipe: %w", err)
	}
	go func() {
		defer stdin.Close()
		io.WriteString(stdin, text) //nolint:errcheck
	}()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run pager: %w", err)
	}

	return nil
}

func writeLines(out io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
