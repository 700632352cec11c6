package store

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"clawlog/internal/model"
	"clawlog/internal/parser"
)

// maxPromptLen bounds the stored first-prompt excerpt.
const maxPromptLen = 200

// SessionSummary aggregates one session file for listing and reports.
type SessionSummary struct {
	Agent          string    `json:"agent"`
	SessionID      string    `json:"session_id"`
	Path           string    `json:"path"`
	Modified       time.Time `json:"modified"`
	SizeBytes      int64     `json:"size_bytes"`
	Messages       int       `json:"messages"`
	UserCount      int       `json:"user_messages"`
	AssistantCount int       `json:"assistant_messages"`
	TotalCost      float64   `json:"total_cost"`
	FirstAt        time.Time `json:"first_at"`
	LastAt         time.Time `json:"last_at"`
	FirstPrompt    string    `json:"first_prompt,omitempty"`
	Deleted        bool      `json:"deleted,omitempty"`
}

// SummaryCache looks up and stores summaries keyed by file identity.
// A hit requires both the recorded mtime and size to match.
type SummaryCache interface {
	Get(path string, mtimeNs, sizeBytes int64) (SessionSummary, bool, error)
	Put(summary SessionSummary) error
}

// Summarize scans the whole session file at path into a SessionSummary.
func (s *Store) Summarize(path, agent string) (SessionSummary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("stat session file: %w", err)
	}

	sum := SessionSummary{
		Agent:     agent,
		SessionID: SessionID(path),
		Path:      path,
		Modified:  info.ModTime(),
		SizeBytes: info.Size(),
		Deleted:   Deleted(path),
	}

	err = parser.IterateMessages(path, agent, sum.SessionID, func(msg model.Message) error {
		sum.Messages++
		switch msg.Role {
		case model.RoleUser:
			sum.UserCount++
			if sum.FirstPrompt == "" {
				sum.FirstPrompt = clipPrompt(collapseSpace(msg.Text), maxPromptLen)
			}
		case model.RoleAssistant:
			sum.AssistantCount++
		}
		if msg.HasCost() {
			sum.TotalCost += *msg.Cost
		}
		if sum.FirstAt.IsZero() || msg.Timestamp.Before(sum.FirstAt) {
			sum.FirstAt = msg.Timestamp
		}
		if msg.Timestamp.After(sum.LastAt) {
			sum.LastAt = msg.Timestamp
		}
		return nil
	})
	if err != nil {
		return SessionSummary{}, err
	}

	return sum, nil
}

// ListOptions controls ListSessions.
type ListOptions struct {
	Agents         []string // empty selects all discovered agents
	IncludeDeleted bool
	Cache          SummaryCache // nil scans every file
	Limit          int          // 0 means no limit
}

// ListResult contains session summaries and non-fatal warnings.
type ListResult struct {
	Summaries []SessionSummary
	Warnings  []error
}

// ListSessions summarizes sessions across the requested agents, newest
// last-activity first. Per-file failures become warnings, never a failed
// listing; cache failures degrade to a direct scan the same way.
func (s *Store) ListSessions(opts ListOptions) ListResult {
	agents := opts.Agents
	if len(agents) == 0 {
		agents = s.Agents()
	}

	var res ListResult
	for _, agent := range agents {
		for _, path := range s.SessionFiles(agent, opts.IncludeDeleted) {
			sum, err := s.summarizeCached(path, agent, opts.Cache, &res.Warnings)
			if err != nil {
				res.Warnings = append(res.Warnings, err)
				continue
			}
			res.Summaries = append(res.Summaries, sum)
		}
	}

	sort.SliceStable(res.Summaries, func(i, j int) bool {
		return res.Summaries[i].Modified.After(res.Summaries[j].Modified)
	})
	if opts.Limit > 0 && len(res.Summaries) > opts.Limit {
		res.Summaries = res.Summaries[:opts.Limit]
	}
	return res
}

func (s *Store) summarizeCached(path, agent string, c SummaryCache, warnings *[]error) (SessionSummary, error) {
	if c == nil {
		return s.Summarize(path, agent)
	}

	info, err := os.Stat(path)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("stat session file: %w", err)
	}

	cached, ok, err := c.Get(path, info.ModTime().UnixNano(), info.Size())
	if err != nil {
		*warnings = append(*warnings, fmt.Errorf("cache read %s: %w", path, err))
	} else if ok {
		return cached, nil
	}

	sum, err := s.Summarize(path, agent)
	if err != nil {
		return SessionSummary{}, err
	}
	if err := c.Put(sum); err != nil {
		*warnings = append(*warnings, fmt.Errorf("cache write %s: %w", path, err))
	}
	return sum, nil
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func clipPrompt(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
