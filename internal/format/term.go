package format

import (
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

const (
	ansiReset     = "\x1b[0m"
	ansiBold      = "\x1b[1m"
	ansiDim       = "\x1b[2m"
	ansiAgent     = "\x1b[36m"
	ansiCost      = "\x1b[33m"
	ansiUser      = "\x1b[1;32m"
	ansiAssistant = "\x1b[1;35m"
	ansiMirror    = "\x1b[1;34m"
)

func colorize(enabled bool, code string, text string) string {
	if !enabled {
		return text
	}
	return code + text + ansiReset
}

// ResolveColor decides whether ANSI codes should go to out. Explicit
// flags win, then NO_COLOR, then terminal detection.
func ResolveColor(force, forceNo bool, out io.Writer) bool {
	if force {
		return true
	}
	if forceNo {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// DetermineWidth returns the rendering width: wrap when positive, else the
// terminal width of out, else COLUMNS, else 80.
func DetermineWidth(out *os.File, wrap int) int {
	if wrap > 0 {
		return wrap
	}
	if out != nil {
		if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if colsStr := os.Getenv("COLUMNS"); colsStr != "" {
		if v, err := strconv.Atoi(colsStr); err == nil && v > 0 {
			return v
		}
	}
	return 80
}
