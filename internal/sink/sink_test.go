package sink

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/blockdup/blockdup/internal/comparator"
	"github.com/blockdup/blockdup/internal/fsnode"
)

func fileRef(dir, name string) *fsnode.FileRef {
	return fsnode.NewFileRef(fsnode.NewDirRef(dir), name)
}

func TestTextDupSinkSeparatesGroupsWithBlankLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewTextDupSink(&buf)

	s.Dup(comparator.Group{Size: 10, Files: []*fsnode.FileRef{fileRef("/a", "x"), fileRef("/a", "y")}})
	s.Dup(comparator.Group{Size: 20, Files: []*fsnode.FileRef{fileRef("/b", "z"), fileRef("/b", "w")}})

	out := buf.String()
	if strings.Count(out, "\n\n") != 1 {
		t.Errorf("expected exactly one blank-line separator, got:\n%s", out)
	}
	if !strings.Contains(out, "/a/x") || !strings.Contains(out, "/b/w") {
		t.Errorf("missing expected paths in output:\n%s", out)
	}
}

func TestTextErrSinkClearsLineFirst(t *testing.T) {
	var buf bytes.Buffer
	cleared := false
	s := NewTextErrSink(&buf, func() { cleared = true })

	s.Err("/tmp/x", "permission denied")

	if !cleared {
		t.Error("expected clearLine to be invoked before writing")
	}
	if !strings.Contains(buf.String(), "/tmp/x") || !strings.Contains(buf.String(), "permission denied") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestJSONDupSinkEmitsOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONDupSink(&buf)

	s.Dup(comparator.Group{Size: 10, Files: []*fsnode.FileRef{fileRef("/a", "x"), fileRef("/a", "y")}})
	s.Dup(comparator.Group{Size: 20, Files: []*fsnode.FileRef{fileRef("/b", "z"), fileRef("/b", "w")}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var g jsonGroup
	if err := json.Unmarshal([]byte(lines[0]), &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if g.Size != 10 || len(g.Paths) != 2 {
		t.Errorf("unexpected group: %+v", g)
	}
}

func TestJSONErrSinkEmitsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONErrSink(&buf)

	s.Err("/tmp/x", "permission denied")

	var e jsonErr
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Path != "/tmp/x" || e.Error != "permission denied" {
		t.Errorf("unexpected error record: %+v", e)
	}
}

func TestEscapePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"has\ttab", "has\\ttab"},
		{"has\nnewline", "has\\nnewline"},
	}
	for _, tt := range tests {
		if got := escapePath(tt.in); got != tt.want {
			t.Errorf("escapePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
