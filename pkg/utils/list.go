package utils

import "strings"

// SplitList splits a comma-separated query value into trimmed, non-empty
// entries, keeping at most max of them (max <= 0 means no cap).
func SplitList(raw string, max int) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return CompactList(strings.Split(raw, ","), max)
}

// CompactList trims every entry, drops empty ones and keeps the first max.
func CompactList(items []string, max int) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
