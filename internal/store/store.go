// Package store discovers agents and session files under the OpenClaw root.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	sessionExt    = ".jsonl"
	deletedMarker = ".deleted."
)

// ErrSessionNotFound is returned when no session file matches an identifier.
var ErrSessionNotFound = errors.New("session not found")

// Store resolves agents and session files under a single agents root.
// The expected layout is <root>/<agent>/sessions/<session>.jsonl.
type Store struct {
	root string
}

// New returns a Store over the given agents root.
func New(root string) *Store {
	return &Store{root: root}
}

// DefaultRoot returns the standard agents root, ~/.openclaw/agents.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".openclaw", "agents"), nil
}

// Root returns the agents root this store reads from.
func (s *Store) Root() string {
	return s.root
}

// Agents returns the sorted ids of agents that have a sessions directory.
// A missing or unreadable root yields an empty list, not an error.
func (s *Store) Agents() []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil
	}

	var agents []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := os.Stat(filepath.Join(s.root, entry.Name(), "sessions"))
		if err != nil || !info.IsDir() {
			continue
		}
		agents = append(agents, entry.Name())
	}
	sort.Strings(agents)
	return agents
}

// SessionDir returns the sessions directory for an agent.
func (s *Store) SessionDir(agent string) string {
	return filepath.Join(s.root, agent, "sessions")
}

// SessionFiles returns the session file paths for an agent, newest mtime
// first. Names carrying the deletion marker are skipped unless included.
func (s *Store) SessionFiles(agent string, includeDeleted bool) []string {
	dir := s.SessionDir(agent)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	type candidate struct {
		path  string
		mtime time.Time
	}
	var files []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, sessionExt) {
			continue
		}
		if !includeDeleted && strings.Contains(name, deletedMarker) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{path: filepath.Join(dir, name), mtime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mtime.After(files[j].mtime) })

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths
}

// AgentInfo summarizes one agent's session directory.
type AgentInfo struct {
	Agent        string    `json:"agent"`
	Sessions     int       `json:"sessions"`
	LastActivity time.Time `json:"last_activity"`
}

// AgentInfos returns per-agent session counts and newest activity times.
func (s *Store) AgentInfos(includeDeleted bool) []AgentInfo {
	var infos []AgentInfo
	for _, agent := range s.Agents() {
		files := s.SessionFiles(agent, includeDeleted)
		info := AgentInfo{Agent: agent, Sessions: len(files)}
		if len(files) > 0 {
			if fi, err := os.Stat(files[0]); err == nil {
				info.LastActivity = fi.ModTime()
			}
		}
		infos = append(infos, info)
	}
	return infos
}

// FindSessionPath locates the session file matching id, which may be a
// unique prefix of the full identifier. An empty agent searches all agents.
// It returns the resolved path and owning agent.
func (s *Store) FindSessionPath(agent, id string, includeDeleted bool) (string, string, error) {
	agents := []string{agent}
	if agent == "" {
		agents = s.Agents()
	}

	type match struct {
		path  string
		agent string
	}
	var matches []match
	for _, a := range agents {
		for _, path := range s.SessionFiles(a, includeDeleted) {
			sid := SessionID(path)
			if sid == id {
				return path, a, nil
			}
			if strings.HasPrefix(sid, id) {
				matches = append(matches, match{path: path, agent: a})
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", "", fmt.Errorf("session %q: %w", id, ErrSessionNotFound)
	case 1:
		return matches[0].path, matches[0].agent, nil
	default:
		return "", "", fmt.Errorf("session id %q is ambiguous (%d matches)", id, len(matches))
	}
}

// SessionID derives the session identifier from a session file path: the
// filename segment before the first dot.
func SessionID(path string) string {
	name := filepath.Base(path)
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		return name[:idx]
	}
	return name
}

// Deleted reports whether the file name carries the deletion marker.
func Deleted(path string) bool {
	return strings.Contains(filepath.Base(path), deletedMarker)
}
