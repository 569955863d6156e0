// Package numbering generates the human-readable document numbers.
package numbering

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DefaultFormat = "{prefix}{number}"

// OrderPrefix is the monthly order series, e.g. "ORD/25-06/".
func OrderPrefix(t time.Time) string {
	return fmt.Sprintf("ORD/%s/", t.Format("06-01"))
}

// NextSeq returns the sequence number following last, read from the first
// run of digits after prefix. An empty or unparseable last starts at 1.
func NextSeq(prefix, last string) int {
	if last == "" {
		return 1
	}
	rest := strings.TrimPrefix(last, prefix)
	start := strings.IndexFunc(rest, isDigit)
	if start < 0 {
		return 1
	}
	end := start
	for end < len(rest) && isDigit(rune(rest[end])) {
		end++
	}
	n, err := strconv.Atoi(rest[start:end])
	if err != nil || n < 0 {
		return 1
	}
	return n + 1
}

// Pad renders n with at least four digits.
func Pad(n int) string { return fmt.Sprintf("%04d", n) }

// Next returns the number that follows last in the prefix series.
func Next(prefix, last string) string {
	return prefix + Pad(NextSeq(prefix, last))
}

// Format expands {prefix} and {number} in format. An empty format falls back
// to DefaultFormat.
func Format(format, prefix string, n int) string {
	if strings.TrimSpace(format) == "" {
		format = DefaultFormat
	}
	r := strings.NewReplacer("{prefix}", prefix, "{number}", Pad(n))
	return r.Replace(format)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// SeriesKey is the fixed text that every number of a format starts with,
// used to find the latest number of the series.
func SeriesKey(format, prefix string) string {
	if strings.TrimSpace(format) == "" {
		format = DefaultFormat
	}
	if i := strings.Index(format, "{number}"); i >= 0 {
		format = format[:i]
	}
	return strings.ReplaceAll(format, "{prefix}", prefix)
}
