package utils

import (
	"context"
	"testing"
	"time"
)

func TestWaitForReturnsAfterDuration(t *testing.T) {
	originalSleep := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = originalSleep }()

	if err := WaitFor(context.Background(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForZeroDurationIsImmediate(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForHonorsCancel(t *testing.T) {
	originalSleep := sleep
	block := make(chan struct{})
	sleep = func(time.Duration) { <-block }
	defer func() {
		close(block)
		sleep = originalSleep
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTruncateForLog(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short string untouched", "hello", 10, "hello"},
		{"exact limit untouched", "hello", 5, "hello"},
		{"truncated with ellipsis", "hello world", 5, "hello..."},
		{"whitespace trimmed first", "  hello  ", 10, "hello"},
		{"zero limit", "hello", 0, ""},
		{"multibyte runes", "привет мир", 6, "привет..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateForLog(tt.in, tt.limit); got != tt.want {
				t.Fatalf("TruncateForLog(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}
