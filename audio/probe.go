// Package audio concatenates synthesized clips into the final digest and
// derives chapter markers and a transcript from the script.
package audio

import (
	"encoding/json"
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeDuration returns the playable length of path in seconds via ffprobe.
func ProbeDuration(path string) (float64, error) {
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var info struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse output: %w", path, err)
	}

	d, err := strconv.ParseFloat(info.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: duration %q: %w", path, info.Format.Duration, err)
	}
	return d, nil
}

// EstimateDuration approximates speech length from text when a clip could
// not be probed. Roughly six characters per second, never under two seconds.
func EstimateDuration(text string) float64 {
	est := float64(len(text)) / 6.0
	if est < 2.0 {
		return 2.0
	}
	return est
}
