package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testRoot() string {
	return filepath.Join("..", "..", "testdata", "agents")
}

func writeSession(t *testing.T, root, agent, name, body string, mtime time.Time) string {
	t.Helper()
	dir := filepath.Join(root, agent, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir sessions: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write session: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return path
}

func TestAgents(t *testing.T) {
	s := New(testRoot())

	agents := s.Agents()
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents, got %d: %v", len(agents), agents)
	}
	if agents[0] != "main" || agents[1] != "penny" {
		t.Fatalf("unexpected agents: %v", agents)
	}
}

func TestAgentsMissingRoot(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope"))
	if agents := s.Agents(); len(agents) != 0 {
		t.Fatalf("expected no agents, got %v", agents)
	}
}

func TestSessionFilesSkipsDeleted(t *testing.T) {
	s := New(testRoot())

	files := s.SessionFiles("main", false)
	if len(files) != 2 {
		t.Fatalf("expected 2 session files, got %d: %v", len(files), files)
	}
	for _, path := range files {
		if Deleted(path) {
			t.Fatalf("deleted session leaked into listing: %s", path)
		}
	}

	files = s.SessionFiles("main", true)
	if len(files) != 3 {
		t.Fatalf("expected 3 session files with deleted, got %d", len(files))
	}
}

func TestSessionFilesNewestFirst(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	writeSession(t, root, "main", "old.jsonl", "", base.Add(-2*time.Hour))
	writeSession(t, root, "main", "mid.jsonl", "", base.Add(-time.Hour))
	writeSession(t, root, "main", "new.jsonl", "", base)

	files := New(root).SessionFiles("main", false)
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
	want := []string{"new", "mid", "old"}
	for i, path := range files {
		if SessionID(path) != want[i] {
			t.Fatalf("unexpected order at %d: %s", i, path)
		}
	}
}

func TestSessionID(t *testing.T) {
	cases := map[string]string{
		"/tmp/agents/main/sessions/11111111-aaaa.jsonl":    "11111111-aaaa",
		"/tmp/agents/main/sessions/22222222.deleted.jsonl": "22222222",
		"plain.jsonl": "plain",
		"noext":       "noext",
	}
	for path, want := range cases {
		if got := SessionID(path); got != want {
			t.Fatalf("SessionID(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestDeleted(t *testing.T) {
	if !Deleted("/x/33333333-cccc.deleted.jsonl") {
		t.Fatalf("expected deleted marker to be detected")
	}
	if Deleted("/x/33333333-cccc.jsonl") {
		t.Fatalf("unexpected deleted marker")
	}
}

func TestAgentInfos(t *testing.T) {
	s := New(testRoot())

	infos := s.AgentInfos(false)
	if len(infos) != 2 {
		t.Fatalf("expected 2 agent infos, got %d", len(infos))
	}
	byAgent := map[string]AgentInfo{}
	for _, info := range infos {
		byAgent[info.Agent] = info
	}
	if byAgent["main"].Sessions != 2 {
		t.Fatalf("expected 2 sessions for main, got %d", byAgent["main"].Sessions)
	}
	if byAgent["penny"].Sessions != 1 {
		t.Fatalf("expected 1 session for penny, got %d", byAgent["penny"].Sessions)
	}
	if byAgent["main"].LastActivity.IsZero() {
		t.Fatalf("expected last activity to be populated")
	}

	infos = s.AgentInfos(true)
	for _, info := range infos {
		if info.Agent == "main" && info.Sessions != 3 {
			t.Fatalf("expected 3 sessions for main with deleted, got %d", info.Sessions)
		}
	}
}

func TestFindSessionPath(t *testing.T) {
	s := New(testRoot())

	path, agent, err := s.FindSessionPath("main", "22222222-bbbb", false)
	if err != nil {
		t.Fatalf("FindSessionPath returned error: %v", err)
	}
	if agent != "main" || SessionID(path) != "22222222-bbbb" {
		t.Fatalf("unexpected match: %s (%s)", path, agent)
	}

	// Prefix lookup across every agent.
	path, agent, err = s.FindSessionPath("", "4444", false)
	if err != nil {
		t.Fatalf("prefix lookup returned error: %v", err)
	}
	if agent != "penny" || SessionID(path) != "44444444-dddd" {
		t.Fatalf("unexpected prefix match: %s (%s)", path, agent)
	}

	if _, _, err := s.FindSessionPath("main", "33333333-cccc", false); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for deleted session, got %v", err)
	}
	if _, _, err := s.FindSessionPath("main", "33333333-cccc", true); err != nil {
		t.Fatalf("expected deleted session with includeDeleted, got %v", err)
	}
	if _, _, err := s.FindSessionPath("", "zzzz", false); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestFindSessionPathAmbiguous(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	writeSession(t, root, "main", "abc-1.jsonl", "", now)
	writeSession(t, root, "main", "abc-2.jsonl", "", now)
	writeSession(t, root, "main", "abc.jsonl", "", now)

	s := New(root)
	if _, _, err := s.FindSessionPath("main", "abc-", false); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguous error, got %v", err)
	}

	// An exact id wins even when it prefixes other ids.
	path, _, err := s.FindSessionPath("main", "abc", false)
	if err != nil {
		t.Fatalf("exact lookup returned error: %v", err)
	}
	if SessionID(path) != "abc" {
		t.Fatalf("expected exact match, got %s", path)
	}
}

func TestSummarize(t *testing.T) {
	s := New(testRoot())
	path := filepath.Join(testRoot(), "main", "sessions", "11111111-aaaa.jsonl")

	sum, err := s.Summarize(path, "main")
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}

	if sum.SessionID != "11111111-aaaa" || sum.Agent != "main" {
		t.Fatalf("unexpected identity: %s / %s", sum.Agent, sum.SessionID)
	}
	if sum.Messages != 4 || sum.UserCount != 2 || sum.AssistantCount != 2 {
		t.Fatalf("unexpected counts: %d/%d/%d", sum.Messages, sum.UserCount, sum.AssistantCount)
	}
	if sum.TotalCost != 0.0031 {
		t.Fatalf("unexpected total cost: %v", sum.TotalCost)
	}
	if sum.FirstPrompt != "What is the weather today?" {
		t.Fatalf("unexpected first prompt: %q", sum.FirstPrompt)
	}
	wantFirst := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	wantLast := time.Date(2026, 3, 1, 10, 0, 15, 0, time.UTC)
	if !sum.FirstAt.Equal(wantFirst) || !sum.LastAt.Equal(wantLast) {
		t.Fatalf("unexpected activity range: %v .. %v", sum.FirstAt, sum.LastAt)
	}
	if sum.Deleted {
		t.Fatalf("unexpected deleted flag")
	}
	if sum.SizeBytes == 0 || sum.Modified.IsZero() {
		t.Fatalf("expected file metadata to be populated")
	}
}

func TestSummarizeDeleted(t *testing.T) {
	s := New(testRoot())
	path := filepath.Join(testRoot(), "main", "sessions", "33333333-cccc.deleted.jsonl")

	sum, err := s.Summarize(path, "main")
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if !sum.Deleted {
		t.Fatalf("expected deleted flag")
	}
	if sum.Messages != 2 || sum.TotalCost != 0.0007 {
		t.Fatalf("unexpected counts: %d messages, cost %v", sum.Messages, sum.TotalCost)
	}
}

func TestSummarizeMissingFile(t *testing.T) {
	s := New(testRoot())
	if _, err := s.Summarize(filepath.Join(testRoot(), "main", "sessions", "missing.jsonl"), "main"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestListSessions(t *testing.T) {
	s := New(testRoot())

	res := s.ListSessions(ListOptions{})
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", res.Warnings)
	}
	if len(res.Summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(res.Summaries))
	}

	ids := map[string]bool{}
	for _, sum := range res.Summaries {
		ids[sum.SessionID] = true
	}
	for _, id := range []string{"11111111-aaaa", "22222222-bbbb", "44444444-dddd"} {
		if !ids[id] {
			t.Fatalf("expected %s in results: %v", id, ids)
		}
	}
}

func TestListSessionsIncludeDeleted(t *testing.T) {
	s := New(testRoot())

	res := s.ListSessions(ListOptions{IncludeDeleted: true})
	if len(res.Summaries) != 4 {
		t.Fatalf("expected 4 summaries, got %d", len(res.Summaries))
	}
	var found bool
	for _, sum := range res.Summaries {
		if sum.SessionID == "33333333-cccc" {
			found = true
			if !sum.Deleted {
				t.Fatalf("expected deleted flag on %s", sum.SessionID)
			}
		}
	}
	if !found {
		t.Fatalf("expected deleted session in results")
	}
}

func TestListSessionsAgentFilter(t *testing.T) {
	s := New(testRoot())

	res := s.ListSessions(ListOptions{Agents: []string{"penny"}})
	if len(res.Summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(res.Summaries))
	}
	sum := res.Summaries[0]
	if sum.Agent != "penny" || sum.SessionID != "44444444-dddd" {
		t.Fatalf("unexpected summary: %s / %s", sum.Agent, sum.SessionID)
	}
	if sum.FirstPrompt != "[User Message] deploy the staging build" {
		t.Fatalf("unexpected first prompt: %q", sum.FirstPrompt)
	}
}

func TestListSessionsOrderAndLimit(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	line := `{"type":"message","timestamp":"2026-03-10T08:00:00Z","message":{"role":"user","content":"hi"}}` + "\n"
	writeSession(t, root, "alpha", "a1.jsonl", line, base.Add(-3*time.Hour))
	writeSession(t, root, "alpha", "a2.jsonl", line, base)
	writeSession(t, root, "beta", "b1.jsonl", line, base.Add(-time.Hour))

	s := New(root)
	res := s.ListSessions(ListOptions{})
	if len(res.Summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(res.Summaries))
	}
	want := []string{"a2", "b1", "a1"}
	for i, sum := range res.Summaries {
		if sum.SessionID != want[i] {
			t.Fatalf("unexpected order at %d: %s", i, sum.SessionID)
		}
	}

	res = s.ListSessions(ListOptions{Limit: 2})
	if len(res.Summaries) != 2 {
		t.Fatalf("expected 2 summaries with limit, got %d", len(res.Summaries))
	}
	if res.Summaries[0].SessionID != "a2" || res.Summaries[1].SessionID != "b1" {
		t.Fatalf("limit kept the wrong sessions: %v", res.Summaries)
	}
}

type fakeCache struct {
	entries map[string]SessionSummary
	gets    int
	puts    int
	getErr  error
}

func (f *fakeCache) Get(path string, mtimeNs, sizeBytes int64) (SessionSummary, bool, error) {
	f.gets++
	if f.getErr != nil {
		return SessionSummary{}, false, f.getErr
	}
	sum, ok := f.entries[path]
	if !ok || sum.Modified.UnixNano() != mtimeNs || sum.SizeBytes != sizeBytes {
		return SessionSummary{}, false, nil
	}
	return sum, true, nil
}

func (f *fakeCache) Put(sum SessionSummary) error {
	if f.entries == nil {
		f.entries = map[string]SessionSummary{}
	}
	f.entries[sum.Path] = sum
	f.puts++
	return nil
}

func TestListSessionsCache(t *testing.T) {
	s := New(testRoot())
	cache := &fakeCache{}

	res := s.ListSessions(ListOptions{Cache: cache})
	if len(res.Summaries) != 3 || len(res.Warnings) != 0 {
		t.Fatalf("unexpected first pass: %d summaries, %v", len(res.Summaries), res.Warnings)
	}
	if cache.puts != 3 {
		t.Fatalf("expected 3 cache writes, got %d", cache.puts)
	}

	// Second pass is served from the cache without re-reading files.
	cache.puts = 0
	res = s.ListSessions(ListOptions{Cache: cache})
	if len(res.Summaries) != 3 {
		t.Fatalf("expected 3 summaries on cached pass, got %d", len(res.Summaries))
	}
	if cache.puts != 0 {
		t.Fatalf("expected no cache writes on cached pass, got %d", cache.puts)
	}
	if cache.gets != 6 {
		t.Fatalf("expected 6 cache lookups across both passes, got %d", cache.gets)
	}
}

func TestListSessionsCacheFailure(t *testing.T) {
	s := New(testRoot())
	cache := &fakeCache{getErr: errors.New("cache offline")}

	res := s.ListSessions(ListOptions{Cache: cache})
	if len(res.Summaries) != 3 {
		t.Fatalf("expected full listing despite cache failure, got %d", len(res.Summaries))
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected cache warnings")
	}
	if !strings.Contains(res.Warnings[0].Error(), "cache read") {
		t.Fatalf("unexpected warning: %v", res.Warnings[0])
	}
}

func TestClipPrompt(t *testing.T) {
	long := strings.Repeat("x", maxPromptLen+20)
	clipped := clipPrompt(long, maxPromptLen)
	if got := len([]rune(clipped)); got != maxPromptLen {
		t.Fatalf("expected %d runes, got %d", maxPromptLen, got)
	}
	if !strings.HasSuffix(clipped, "…") {
		t.Fatalf("expected ellipsis suffix: %q", clipped)
	}
	if clipPrompt("short", maxPromptLen) != "short" {
		t.Fatalf("short prompt should pass through")
	}
}

func TestCollapseSpace(t *testing.T) {
	if got := collapseSpace("  a\n\tb   c "); got != "a b c" {
		t.Fatalf("unexpected collapse: %q", got)
	}
}
