package audio

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"briefcast/types"
)

// Result is the output of one assembly: the concatenated digest plus the
// metadata derived from the same durations.
type Result struct {
	AudioPath  string
	Chapters   []types.Chapter
	Transcript string
	Duration   float64
}

// Assemble concatenates segments into outPath and derives chapters and the
// transcript. Segments must already be in script order; missing durations
// are estimated from text length so chapter math never blocks on a failed
// probe.
func Assemble(segments []types.AudioSegment, outPath string) (*Result, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("assemble: no segments")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("assemble: ffmpeg not found on PATH: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("assemble: output dir: %w", err)
	}

	filled := fillDurations(segments)

	if err := concat(filled, outPath); err != nil {
		return nil, err
	}

	total := 0.0
	for _, seg := range filled {
		total += seg.Duration
	}

	return &Result{
		AudioPath:  outPath,
		Chapters:   BuildChapters(filled),
		Transcript: Transcript(filled),
		Duration:   total,
	}, nil
}

func fillDurations(segments []types.AudioSegment) []types.AudioSegment {
	out := make([]types.AudioSegment, len(segments))
	copy(out, segments)
	for i := range out {
		if out[i].Duration <= 0 {
			out[i].Duration = EstimateDuration(out[i].Segment.Text)
		}
	}
	return out
}

// concat joins the clips with ffmpeg's concat demuxer.
func concat(segments []types.AudioSegment, outPath string) error {
	listPath, err := writeConcatList(segments)
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	err = ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(outPath, outputArgs(outPath)).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("assemble: ffmpeg concat: %w", err)
	}
	return nil
}

// outputArgs picks the codec from the target extension: mp3 targets
// re-encode so clips with differing bitrates concatenate cleanly, anything
// else stream-copies.
func outputArgs(outPath string) ffmpeg.KwArgs {
	if strings.ToLower(filepath.Ext(outPath)) == ".mp3" {
		return ffmpeg.KwArgs{"c:a": "libmp3lame", "q:a": "4"}
	}
	return ffmpeg.KwArgs{"c": "copy"}
}

func writeConcatList(segments []types.AudioSegment) (string, error) {
	f, err := os.CreateTemp("", "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("assemble: concat list: %w", err)
	}
	defer f.Close()

	for _, seg := range segments {
		abs, err := filepath.Abs(seg.Path)
		if err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("assemble: resolve %s: %w", seg.Path, err)
		}
		// concat demuxer syntax quotes paths with single quotes
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		fmt.Fprintf(f, "file '%s'\n", escaped)
	}
	return f.Name(), nil
}

// BuildChapters returns one chapter per story segment. Intro and outro
// advance the running clock but get no marker of their own. Starts are the
// floor of the cumulative duration of everything before the segment.
func BuildChapters(segments []types.AudioSegment) []types.Chapter {
	chapters := []types.Chapter{}
	elapsed := 0.0
	for _, seg := range segments {
		if seg.Segment.Cluster != nil {
			chapters = append(chapters, types.Chapter{
				Title:   seg.Segment.Title,
				Start:   int(math.Floor(elapsed)),
				Sources: seg.Segment.Sources,
			})
		}
		elapsed += seg.Duration
	}
	return chapters
}

// Transcript renders the full script, one line per segment.
func Transcript(segments []types.AudioSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.Segment.Text)
		b.WriteString("\n")
	}
	return b.String()
}
