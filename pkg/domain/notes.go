package domain

import (
	"fmt"
	"strings"
	"time"
)

// SoftDeleteMarker tags the audit note written when a delete request is
// downgraded to a terminal status transition.
const SoftDeleteMarker = "由用户删除"

// StatusNote renders the audit line for a status transition.
func StatusNote(from, to, operatorID, reason, comments string, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] status %s -> %s by %s", at.UTC().Format(time.RFC3339), from, to, operatorID)
	if reason = strings.TrimSpace(reason); reason != "" {
		fmt.Fprintf(&b, "; reason: %s", reason)
	}
	if comments = strings.TrimSpace(comments); comments != "" {
		fmt.Fprintf(&b, "; comments: %s", comments)
	}
	return b.String()
}

// SoftDeleteNote renders the audit line for a logical delete.
func SoftDeleteNote(from, to, operatorID string, at time.Time) string {
	return fmt.Sprintf("[%s] %s (operator %s): status %s -> %s", at.UTC().Format(time.RFC3339), SoftDeleteMarker, operatorID, from, to)
}

// AppendNote appends line to an existing notes field, one entry per line.
func AppendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
