package utils

import (
	"io"
	"strings"
)

// DrainAndClose drains rc so the transport can reuse the connection, then closes it.
func DrainAndClose(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, rc)
	return rc.Close()
}

// Snippet reads at most limit bytes from r and returns them trimmed, for error messages.
func Snippet(r io.Reader, limit int64) string {
	if r == nil || limit <= 0 {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, limit))
	return strings.TrimSpace(string(b))
}
