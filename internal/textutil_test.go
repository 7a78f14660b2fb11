package internal

import (
	"strings"
	"testing"
	"time"
)

func TestTruncateTranscriptShortTextUnchanged(t *testing.T) {
	text := "Short transcript."
	if got := TruncateTranscript(text, 100); got != text {
		t.Errorf("TruncateTranscript = %q, want unchanged input", got)
	}
}

func TestTruncateTranscriptPrefersSentenceBoundary(t *testing.T) {
	// Sentence end lands inside the 15% window below the budget.
	text := "First sentence here. Second sentence follows and keeps going well past the budget."
	got := TruncateTranscript(text, 24)

	if !strings.HasSuffix(got, Ellipsis) {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	body := strings.TrimSuffix(got, Ellipsis)
	if body != "First sentence here." {
		t.Errorf("expected cut at sentence boundary, got %q", body)
	}
}

func TestTruncateTranscriptRawCutWithoutBoundary(t *testing.T) {
	text := strings.Repeat("x", 200)
	got := TruncateTranscript(text, 50)

	if !strings.HasSuffix(got, Ellipsis) {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if len(strings.TrimSuffix(got, Ellipsis)) != 50 {
		t.Errorf("expected raw cut at 50 chars, got %d", len(strings.TrimSuffix(got, Ellipsis)))
	}
}

func TestTruncateTranscriptIgnoresEarlyBoundary(t *testing.T) {
	// The only sentence end sits far below the window, so the cut is raw.
	text := "Hi. " + strings.Repeat("y", 300)
	got := TruncateTranscript(text, 100)

	body := strings.TrimSuffix(got, Ellipsis)
	if len(body) != 100 {
		t.Errorf("expected raw cut at 100 chars, got %d", len(body))
	}
}

func TestTruncateWords(t *testing.T) {
	text := "one two three four five"
	if got := TruncateWords(text, 3); got != "one two three"+Ellipsis {
		t.Errorf("TruncateWords = %q", got)
	}
	if got := TruncateWords(text, 10); got != text {
		t.Errorf("TruncateWords should not touch short input, got %q", got)
	}
}

func TestTruncateFieldWordBoundary(t *testing.T) {
	got := TruncateField("a reasonably long topic title", 15)
	if !strings.HasSuffix(got, Ellipsis) {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	body := strings.TrimSuffix(got, Ellipsis)
	if strings.HasSuffix(body, " ") || len(body) > 15 {
		t.Errorf("expected clean word-boundary cut within budget, got %q", body)
	}
	if body != "a reasonably" {
		t.Errorf("TruncateField = %q, want %q", body, "a reasonably")
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"01:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{"12:34", 12*time.Minute + 34*time.Second},
		{"90", 90 * time.Second},
		{" 00:05 ", 5 * time.Second},
		{"abc", 0},
		{"1:2:3:4", 0},
		{"", 0},
		{"12:xx", 0},
	}
	for _, c := range cases {
		if got := ParseTimestamp(c.in); got != c.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  ```json\n{\"a\":1}\n```  ", "{\"a\":1}"},
	}
	for _, c := range cases {
		if got := StripCodeFence(c.in); got != c.want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(65 * time.Second); got != "01:05" {
		t.Errorf("FormatTimestamp = %q, want 01:05", got)
	}
	if got := FormatTimestamp(3723 * time.Second); got != "01:02:03" {
		t.Errorf("FormatTimestamp = %q, want 01:02:03", got)
	}
}
