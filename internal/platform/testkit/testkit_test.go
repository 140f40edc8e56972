package testkit

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestMustPanic_ReturnsValue(t *testing.T) {
	if v := MustPanic(t, func() { panic("frame lost") }); v != "frame lost" {
		t.Fatalf("recovered %v", v)
	}
	MustNotPanic(t, func() {})
}

func TestMustContain(t *testing.T) {
	MustContain(t, `{"level":"warn","kind":"text"}`, `"kind":"text"`)
}

var frameLimit = 8

func TestSwap_RestoresAfterSubtest(t *testing.T) {
	t.Run("swapped", func(t *testing.T) {
		Swap(t, &frameLimit, 2)
		if frameLimit != 2 {
			t.Fatalf("frameLimit = %d", frameLimit)
		}
	})
	if frameLimit != 8 {
		t.Fatalf("not restored: %d", frameLimit)
	}
}

func TestSerial_NoOverlap(t *testing.T) {
	var (
		inside  atomic.Int32
		overlap atomic.Bool
	)
	t.Run("group", func(t *testing.T) {
		for i := range 3 {
			t.Run(strings.Repeat("x", i+1), func(t *testing.T) {
				t.Parallel()
				Serial(t)
				if inside.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(10 * time.Millisecond)
				inside.Add(-1)
			})
		}
	})
	if overlap.Load() {
		t.Fatal("serial sections overlapped")
	}
}
