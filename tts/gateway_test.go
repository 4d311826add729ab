package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"briefcast/resilience"
	"briefcast/types"
)

// fakeSynth returns the segment text as audio bytes and can be told to fail
// a given text a number of times before succeeding.
type fakeSynth struct {
	mu       sync.Mutex
	attempts map[string]int
	failures map[string]int
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{attempts: map[string]int{}, failures: map[string]int{}}
}

func (f *fakeSynth) Name() string { return "fake" }

func (f *fakeSynth) Synthesize(_ context.Context, text, _ string) (*Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[text]++
	if f.failures[text] > 0 {
		f.failures[text]--
		return nil, errors.New("fake synth unavailable")
	}
	return &Audio{Data: []byte(text), Format: "mp3"}, nil
}

func (f *fakeSynth) attemptCount(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[text]
}

func quickRetry() resilience.Config {
	return resilience.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, Fixed: true}
}

func script(n int) []types.ScriptSegment {
	segs := make([]types.ScriptSegment, n)
	for i := range segs {
		segs[i] = types.ScriptSegment{Index: i, Text: fmt.Sprintf("segment text %d", i)}
	}
	return segs
}

func TestGatewayPreservesScriptOrder(t *testing.T) {
	segs := script(8)

	serial := NewGateway(newFakeSynth(), "", 1, quickRetry(), nil, nil)
	serialOut, err := serial.Synthesize(context.Background(), segs, t.TempDir())
	require.NoError(t, err)

	parallel := NewGateway(newFakeSynth(), "", 4, quickRetry(), nil, nil)
	parallelOut, err := parallel.Synthesize(context.Background(), segs, t.TempDir())
	require.NoError(t, err)

	require.Len(t, parallelOut, len(segs))
	for i := range segs {
		require.Equal(t, i, serialOut[i].Segment.Index)
		require.Equal(t, i, parallelOut[i].Segment.Index)
		require.Equal(t, filepath.Base(serialOut[i].Path), filepath.Base(parallelOut[i].Path))

		data, err := os.ReadFile(parallelOut[i].Path)
		require.NoError(t, err)
		require.Equal(t, segs[i].Text, string(data))
	}
}

func TestGatewayRetriesTransientFailure(t *testing.T) {
	segs := script(3)
	synth := newFakeSynth()
	synth.failures[segs[1].Text] = 2 // fails twice, succeeds on the third try

	gw := NewGateway(synth, "", 2, quickRetry(), nil, nil)
	out, err := gw.Synthesize(context.Background(), segs, t.TempDir())
	require.NoError(t, err)

	require.Len(t, out, 3)
	for i := range segs {
		require.Equal(t, i, out[i].Segment.Index)
		require.FileExists(t, out[i].Path)
	}
	require.Equal(t, 3, synth.attemptCount(segs[1].Text))
	require.Equal(t, 1, synth.attemptCount(segs[0].Text))
}

func TestGatewayFailsBatchAfterExhaustion(t *testing.T) {
	segs := script(3)
	synth := newFakeSynth()
	synth.failures[segs[2].Text] = 5 // more than MaxAttempts

	gw := NewGateway(synth, "", 2, quickRetry(), nil, nil)
	_, err := gw.Synthesize(context.Background(), segs, t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "exhausted 3 attempts")
	require.Equal(t, 3, synth.attemptCount(segs[2].Text))
}

func TestGatewayProbesDurations(t *testing.T) {
	segs := script(2)
	probe := func(path string) (float64, error) {
		if filepath.Base(path) == "segment_001.mp3" {
			return 0, errors.New("probe failed")
		}
		return 4.5, nil
	}

	gw := NewGateway(newFakeSynth(), "", 1, quickRetry(), probe, nil)
	out, err := gw.Synthesize(context.Background(), segs, t.TempDir())
	require.NoError(t, err)

	require.InDelta(t, 4.5, out[0].Duration, 1e-9)
	require.Zero(t, out[1].Duration) // estimate happens at assembly time
}

func TestNewSynthesizerValidatesConfig(t *testing.T) {
	_, err := NewSynthesizer(Config{Provider: "nope"})
	require.Error(t, err)

	_, err = NewSynthesizer(Config{Provider: "http"})
	require.Error(t, err) // endpoint required

	s, err := NewSynthesizer(Config{Provider: "http", Endpoint: "http://localhost:8000/speech"})
	require.NoError(t, err)
	require.Equal(t, "http", s.Name())

	s, err = NewSynthesizer(Config{Provider: "piper", PiperModelPath: "/models/en.onnx"})
	require.NoError(t, err)
	require.Equal(t, "piper", s.Name())

	s, err = NewSynthesizer(Config{Provider: "sherpa", SherpaModel: "model.onnx"})
	require.NoError(t, err)
	require.Equal(t, "sherpa", s.Name())
}
