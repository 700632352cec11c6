package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func sampleInfo() Info {
	return Info{
		Root:              "/agents",
		Agents:            2,
		Sessions:          4,
		DeletedSessions:   1,
		Messages:          10,
		UserMessages:      5,
		AssistantMessages: 5,
		TotalCost:         0.0163,
	}
}

func TestWriteInfoText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteInfo(&buf, sampleInfo(), "text"); err != nil {
		t.Fatalf("WriteInfo text returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"clawlog overview",
		"/agents",
		"10 (5 user / 5 assistant)",
		"$0.0163",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("info output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Cache") {
		t.Fatalf("cache line should be omitted without a cache path:\n%s", out)
	}
}

func TestWriteInfoTextWithCache(t *testing.T) {
	info := sampleInfo()
	info.CachePath = "/cache/sessions.db"
	info.CachedSessions = 3

	var buf bytes.Buffer
	if err := WriteInfo(&buf, info, "text"); err != nil {
		t.Fatalf("WriteInfo text returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "/cache/sessions.db (3 sessions)") {
		t.Fatalf("cache line missing:\n%s", buf.String())
	}
}

func TestWriteInfoJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteInfo(&buf, sampleInfo(), "json"); err != nil {
		t.Fatalf("WriteInfo json returned error: %v", err)
	}

	var decoded Info
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json output does not round-trip: %v", err)
	}
	if decoded != sampleInfo() {
		t.Fatalf("decoded info differs: %+v", decoded)
	}
}

func TestWriteInfoInvalidFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteInfo(&buf, sampleInfo(), "yaml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
