package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestOutputTable(t *testing.T) {
	t.Parallel()

	var buf, errBuf bytes.Buffer
	out := &Output{w: &buf, errW: &errBuf}

	out.Print([]string{"ID", "STATE"}, [][]string{{"s1", "running"}, {"s2", "draining"}}, nil)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "STATE") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "--") {
		t.Errorf("separator = %q", lines[1])
	}
	if !strings.Contains(lines[2], "s1") || !strings.Contains(lines[2], "running") {
		t.Errorf("row = %q", lines[2])
	}
	if errBuf.Len() != 0 {
		t.Errorf("stderr = %q, want empty", errBuf.String())
	}
}

func TestOutputJSONMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := &Output{jsonMode: true, w: &buf, errW: &bytes.Buffer{}}

	out.Print([]string{"ID"}, [][]string{{"table-row"}}, map[string]string{"id": "s1"})

	var got map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got["id"] != "s1" {
		t.Errorf("id = %q, want s1", got["id"])
	}
	if strings.Contains(buf.String(), "table-row") {
		t.Errorf("table row leaked into JSON output: %s", buf.String())
	}
}

func TestOutputMessagesGoToStderr(t *testing.T) {
	t.Parallel()

	var buf, errBuf bytes.Buffer
	out := &Output{w: &buf, errW: &errBuf}

	out.Success("done")
	out.Error("boom")

	if buf.Len() != 0 {
		t.Errorf("stdout = %q, want empty", buf.String())
	}
	if want := "done\nError: boom\n"; errBuf.String() != want {
		t.Errorf("stderr = %q, want %q", errBuf.String(), want)
	}
}
