package testkit

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// LogBuffer is a goroutine-safe sink for captured json log lines
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Count returns how many captured lines contain needle
func (b *LogBuffer) Count(needle string) int {
	n := 0
	for _, line := range strings.Split(b.String(), "\n") {
		if line != "" && strings.Contains(line, needle) {
			n++
		}
	}
	return n
}

// CaptureLogs returns a debug-level json logger writing into a fresh buffer
func CaptureLogs(t *testing.T) (*zerolog.Logger, *LogBuffer) {
	t.Helper()
	buf := &LogBuffer{}
	l := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &l, buf
}

// Eventually polls cond until it holds or the timeout elapses
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}
