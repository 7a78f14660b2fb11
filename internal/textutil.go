package internal

import (
	"fmt"
	"strings"
	"time"
)

// Ellipsis marks truncated text.
const Ellipsis = "..."

// boundaryWindow is how far back from the budget a sentence or line break
// may sit and still be preferred over a raw cut.
const boundaryWindow = 0.15

// TruncateTranscript cuts text to at most maxChars, preferring the nearest
// sentence or line boundary within the boundary window. When no boundary is
// close enough the text is cut at the raw budget. Truncated text gets an
// ellipsis appended.
func TruncateTranscript(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}

	cut := maxChars
	window := maxChars - int(float64(maxChars)*boundaryWindow)
	head := text[:maxChars]

	best := -1
	for _, sep := range []string{". ", "? ", "! ", "\n"} {
		if idx := strings.LastIndex(head, sep); idx > best {
			best = idx + len(sep)
		}
	}
	if best >= window {
		cut = best
	}

	return strings.TrimRight(text[:cut], " \n") + Ellipsis
}

// TruncateWords keeps at most maxWords whitespace-separated words, appending
// an ellipsis when anything was dropped.
func TruncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + Ellipsis
}

// TruncateField cuts a free-text field to at most maxChars at the nearest
// word boundary, appending an ellipsis when truncated. Stored titles and
// summaries run through this before persisting.
func TruncateField(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if len(text) <= maxChars {
		return text
	}

	head := text[:maxChars]
	if idx := strings.LastIndexByte(head, ' '); idx > 0 {
		head = head[:idx]
	}
	return strings.TrimRight(head, " ") + Ellipsis
}

// ParseTimestamp parses "HH:MM:SS", "MM:SS" or bare-seconds strings into a
// duration. Anything else yields zero — a bad timestamp must never abort a
// batch.
func ParseTimestamp(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0
	}

	nums := make([]int64, 0, 3)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return 0
		}
		var n int64
		for _, r := range p {
			if r < '0' || r > '9' {
				return 0
			}
			n = n*10 + int64(r-'0')
		}
		nums = append(nums, n)
	}

	switch len(nums) {
	case 1: // bare seconds
		return time.Duration(nums[0]) * time.Second
	case 2: // MM:SS
		return time.Duration(nums[0])*time.Minute + time.Duration(nums[1])*time.Second
	default: // HH:MM:SS
		return time.Duration(nums[0])*time.Hour + time.Duration(nums[1])*time.Minute + time.Duration(nums[2])*time.Second
	}
}

// StripCodeFence removes a Markdown code fence wrapper from an LLM response,
// returning the inner text. Responses without a fence pass through.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	// drop the opening fence line (``` or ```json)
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	} else {
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// FormatTimestamp renders a duration as HH:MM:SS (or MM:SS under an hour)
// for display.
func FormatTimestamp(d time.Duration) string {
	total := int64(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
