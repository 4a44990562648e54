// Package sseutil reads server-sent event streams. The daemon frames each
// payload as a single "event:"/"data:" pair, but assembly here follows the
// wire format in full, so multi-line data and keep-alive comments are
// handled the way any SSE source would expect.
package sseutil

import (
	"bufio"
	"io"
	"strings"
)

// Scanner buffers are sized for the daemon's frames: a message payload is
// one JSON object on a single data line, so 64KB of headroom is generous.
// Longer lines surface as bufio.ErrTooLong from the scanner.
const (
	scanBufSize = 4 << 10
	maxLineSize = 64 << 10
)

func newLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, scanBufSize), maxLineSize)
	return sc
}

// splitField splits an SSE line into its field name and value, dropping
// the single optional space after the colon. Comment lines (leading ':')
// and lines without a colon report ok=false.
func splitField(line string) (name, value string, ok bool) {
	if line == "" || line[0] == ':' {
		return "", "", false
	}
	name, value, ok = strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return name, strings.TrimPrefix(value, " "), true
}
