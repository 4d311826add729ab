package gate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldRun(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	interval := 12 * time.Hour

	require.True(t, ShouldRun(time.Time{}, now, interval), "no prior run")
	require.False(t, ShouldRun(now.Add(-11*time.Hour), now, interval), "11h elapsed")
	require.True(t, ShouldRun(now.Add(-12*time.Hour), now, interval), "exactly 12h elapsed")
	require.True(t, ShouldRun(now.Add(-13*time.Hour), now, interval), "13h elapsed")
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestLastSuccessRequiresCompanions(t *testing.T) {
	dir := t.TempDir()
	state := RunState{
		AudioPath:      filepath.Join(dir, "latest.mp3"),
		ChaptersPath:   filepath.Join(dir, "chapters.json"),
		TranscriptPath: filepath.Join(dir, "transcript.txt"),
	}

	_, ok := state.LastSuccess()
	require.False(t, ok, "nothing on disk")

	writeFile(t, state.AudioPath)
	_, ok = state.LastSuccess()
	require.False(t, ok, "companions missing forces a re-run")

	writeFile(t, state.ChaptersPath)
	_, ok = state.LastSuccess()
	require.False(t, ok, "transcript still missing")

	writeFile(t, state.TranscriptPath)
	last, ok := state.LastSuccess()
	require.True(t, ok)

	info, err := os.Stat(state.AudioPath)
	require.NoError(t, err)
	require.Equal(t, info.ModTime(), last)
}
