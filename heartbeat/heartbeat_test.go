package heartbeat

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func TestTickEmitsAfterInterval(t *testing.T) {
	buf := captureLog(t)

	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	h := New("clustering", 60*time.Second, 1000)
	h.now = func() time.Time { return clock }
	h.lastEmit = clock

	h.Tick("item 1")
	if buf.Len() != 0 {
		t.Fatalf("unexpected emit before interval elapsed: %q", buf.String())
	}

	clock = clock.Add(61 * time.Second)
	h.Tick("item 2")
	if !strings.Contains(buf.String(), "clustering: item 2") {
		t.Fatalf("expected interval emit, got %q", buf.String())
	}
}

func TestTickEmitsEveryN(t *testing.T) {
	buf := captureLog(t)

	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	h := New("tts", time.Hour, 3)
	h.now = func() time.Time { return clock }
	h.lastEmit = clock

	h.Tick("segment 1")
	h.Tick("segment 2")
	if buf.Len() != 0 {
		t.Fatalf("emitted too early: %q", buf.String())
	}
	h.Tick("segment 3")
	if !strings.Contains(buf.String(), "tts: segment 3") {
		t.Fatalf("expected every-N emit, got %q", buf.String())
	}
}

func TestForceAlwaysEmits(t *testing.T) {
	buf := captureLog(t)

	h := New("narration", time.Hour, 1000)
	h.Force("starting")
	if !strings.Contains(buf.String(), "narration: starting") {
		t.Fatalf("expected forced emit, got %q", buf.String())
	}
}
