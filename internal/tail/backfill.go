package tail

import (
	"bytes"
	"io"
	"os"
	"sort"

	"clawlog/internal/model"
	"clawlog/internal/parser"
	"clawlog/internal/store"
)

// Sizing for the bounded trailing read. Raw lines outnumber parseable
// messages, so the region is overread relative to the target count.
const (
	backfillOverread  = 3
	bytesPerLineGuess = 2048
)

// Backfill collects the last n parseable messages across every session
// file of the requested agents, ordered by timestamp ascending. Files that
// cannot be opened or read are skipped.
func Backfill(lister SessionLister, agents []string, n int, includeDeleted bool) []model.Message {
	if n <= 0 {
		return nil
	}

	var msgs []model.Message
	for _, agent := range agents {
		for _, path := range lister.SessionFiles(agent, includeDeleted) {
			msgs = append(msgs, tailFile(path, agent, n)...)
		}
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs
}

// tailFile parses the trailing region of one session file. The region is
// sized from n rather than from the file, so large files never cost a
// full scan.
func tailFile(path, agent string, n int) []model.Message {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		return nil
	}
	size := info.Size()
	start := size - int64(n*backfillOverread*bytesPerLineGuess)
	if start < 0 {
		start = 0
	}

	buf := make([]byte, size-start)
	read, err := file.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return nil
	}
	buf = buf[:read]

	lines := bytes.Split(buf, []byte{'\n'})
	if start > 0 && len(lines) > 0 {
		// A region starting mid-file opens with a fragment of a longer
		// line, not a true line boundary.
		lines = lines[1:]
	}

	sessionID := store.SessionID(path)
	var msgs []model.Message
	for _, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if msg, ok := parser.ParseLine(line, agent, sessionID); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}
