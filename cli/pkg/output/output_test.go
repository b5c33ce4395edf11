package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/relayroom/relayroom/cli/pkg/color"
)

func TestTableRenderAlignsColumns(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	tbl := NewTable([]string{"BACKEND", "STATE"})
	tbl.AddRow([]string{"high_performance", "healthy"})
	tbl.AddRow([]string{"legacy", "degraded"})

	var buf bytes.Buffer
	tbl.render(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "BACKEND") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], strings.Repeat("-", len("high_performance"))) {
		t.Errorf("separator line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "high_performance") || !strings.Contains(lines[2], "healthy") {
		t.Errorf("row line = %q", lines[2])
	}

	// All state cells start at the same column.
	stateCol := strings.Index(lines[2], "healthy")
	if got := strings.Index(lines[3], "degraded"); got != stateCol {
		t.Errorf("column misaligned: %d vs %d", got, stateCol)
	}
}

func TestTableRenderEmptyRows(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	tbl := NewTable([]string{"SUBJECT"})

	var buf bytes.Buffer
	tbl.render(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and separator only, got %q", buf.String())
	}
}
