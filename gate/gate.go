// Package gate decides whether a run is due based on the artifacts the last
// successful run left behind.
package gate

import (
	"os"
	"time"
)

// RunState locates the committed artifacts of the previous run.
type RunState struct {
	AudioPath      string
	ChaptersPath   string
	TranscriptPath string
}

// LastSuccess returns the modification time of the committed audio file. A
// missing audio file, or a missing chapters or transcript companion, means
// no run is on record and the next run must proceed.
func (s RunState) LastSuccess() (time.Time, bool) {
	info, err := os.Stat(s.AudioPath)
	if err != nil {
		return time.Time{}, false
	}
	for _, companion := range []string{s.ChaptersPath, s.TranscriptPath} {
		if _, err := os.Stat(companion); err != nil {
			return time.Time{}, false
		}
	}
	return info.ModTime(), true
}

// ShouldRun reports whether enough time has passed since the last success.
// With no last success on record it always returns true.
func ShouldRun(lastSuccess time.Time, now time.Time, interval time.Duration) bool {
	if lastSuccess.IsZero() {
		return true
	}
	return now.Sub(lastSuccess) >= interval
}
