package features

import "strings"

// GenerateEntrypoint wraps every feature-declared entrypoint command, in
// install order, into a single shell script that execs the user's command
// last. Returns "" if no feature in order declares an entrypoint, signaling
// that no wrapper is needed.
func GenerateEntrypoint(order []*Feature) string {
	var entries []string
	for _, f := range order {
		if f.Metadata == nil || strings.TrimSpace(f.Metadata.Entrypoint) == "" {
			continue
		}
		entries = append(entries, f.Metadata.Entrypoint)
	}
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\nset -e\n")
	for _, e := range entries {
		b.WriteString(e)
		b.WriteString("\n")
	}
	b.WriteString(`exec "$@"` + "\n")
	return b.String()
}
