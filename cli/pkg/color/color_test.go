package color

import (
	"bytes"
	"strings"
	"testing"
)

func TestSprintWrapsWithEscapes(t *testing.T) {
	old := NoColor
	NoColor = false
	defer func() { NoColor = old }()

	got := New(FgGreen, Bold).Sprint("ok")
	if !strings.HasPrefix(got, "\033[32;1m") {
		t.Errorf("missing escape prefix: %q", got)
	}
	if !strings.HasSuffix(got, "\033[0m") {
		t.Errorf("missing reset suffix: %q", got)
	}
	if !strings.Contains(got, "ok") {
		t.Errorf("missing text: %q", got)
	}
}

func TestSprintfFormats(t *testing.T) {
	old := NoColor
	NoColor = false
	defer func() { NoColor = old }()

	got := New(FgRed).Sprintf("count=%d", 3)
	if !strings.Contains(got, "count=3") {
		t.Errorf("Sprintf = %q", got)
	}
}

func TestNoColorStripsEscapes(t *testing.T) {
	old := NoColor
	NoColor = true
	defer func() { NoColor = old }()

	if got := New(FgCyan).Sprint("plain"); got != "plain" {
		t.Errorf("NoColor output = %q, want plain", got)
	}
}

func TestEmptyColorPassesThrough(t *testing.T) {
	old := NoColor
	NoColor = false
	defer func() { NoColor = old }()

	if got := New().Sprint("text"); got != "text" {
		t.Errorf("empty color output = %q, want text", got)
	}
}

func TestFprintf(t *testing.T) {
	old := NoColor
	NoColor = true
	defer func() { NoColor = old }()

	var buf bytes.Buffer
	New(FgYellow).Fprintf(&buf, "warn: %s", "disk")
	if buf.String() != "warn: disk" {
		t.Errorf("Fprintf wrote %q", buf.String())
	}
}
