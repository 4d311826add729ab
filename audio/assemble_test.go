package audio

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"briefcast/types"
)

func seg(index int, title, text string, cluster bool, duration float64) types.AudioSegment {
	s := types.ScriptSegment{Index: index, Title: title, Text: text}
	if cluster {
		s.Cluster = &types.ScoredCluster{}
		s.Sources = []string{"wire"}
	}
	return types.AudioSegment{Segment: s, Duration: duration}
}

func TestBuildChaptersSkipsIntroAndOutro(t *testing.T) {
	segments := []types.AudioSegment{
		seg(0, "", "welcome", false, 5.4),
		seg(1, "Rate cut", "story one", true, 30.2),
		seg(2, "Port strike", "story two", true, 12.9),
		seg(3, "", "goodbye", false, 4.0),
	}

	chapters := BuildChapters(segments)
	require.Len(t, chapters, 2)

	require.Equal(t, "Rate cut", chapters[0].Title)
	require.Equal(t, 5, chapters[0].Start) // floor(5.4)
	require.Equal(t, []string{"wire"}, chapters[0].Sources)

	require.Equal(t, "Port strike", chapters[1].Title)
	require.Equal(t, 35, chapters[1].Start) // floor(5.4 + 30.2)
}

func TestBuildChaptersStartsNonDecreasing(t *testing.T) {
	segments := []types.AudioSegment{
		seg(0, "", "intro", false, 3.0),
		seg(1, "A", "a", true, 0.4),
		seg(2, "B", "b", true, 0.4),
		seg(3, "C", "c", true, 10.0),
	}

	chapters := BuildChapters(segments)
	require.Len(t, chapters, 3)
	total := 0.0
	for _, s := range segments {
		total += s.Duration
	}
	prev := -1
	for _, ch := range chapters {
		require.GreaterOrEqual(t, ch.Start, prev)
		require.Less(t, float64(ch.Start), total)
		prev = ch.Start
	}
}

func TestEstimateDuration(t *testing.T) {
	require.InDelta(t, 2.0, EstimateDuration(""), 1e-9)
	require.InDelta(t, 2.0, EstimateDuration("short"), 1e-9)
	require.InDelta(t, 10.0, EstimateDuration(strings.Repeat("x", 60)), 1e-9)
}

func TestFillDurationsEstimatesMissing(t *testing.T) {
	segments := []types.AudioSegment{
		seg(0, "", strings.Repeat("a", 120), false, 0),
		seg(1, "A", "probed", true, 7.5),
	}

	filled := fillDurations(segments)
	require.InDelta(t, 20.0, filled[0].Duration, 1e-9)
	require.InDelta(t, 7.5, filled[1].Duration, 1e-9)

	// input untouched
	require.Zero(t, segments[0].Duration)
}

func TestTranscriptOneLinePerSegment(t *testing.T) {
	segments := []types.AudioSegment{
		seg(0, "", "Welcome.", false, 2),
		seg(1, "A", "Story text.", true, 2),
		seg(2, "", "Goodbye.", false, 2),
	}

	text := Transcript(segments)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	require.Equal(t, []string{"Welcome.", "Story text.", "Goodbye."}, lines)
}

func TestOutputArgsFollowExtension(t *testing.T) {
	require.Equal(t, "libmp3lame", outputArgs("audio/latest.mp3")["c:a"])
	require.Equal(t, "libmp3lame", outputArgs("audio/LATEST.MP3")["c:a"])
	require.Equal(t, "copy", outputArgs("audio/latest.wav")["c"])
	require.NotContains(t, outputArgs("audio/latest.wav"), "c:a")
}

func TestWriteConcatListEscapesQuotes(t *testing.T) {
	dir := t.TempDir()
	segments := []types.AudioSegment{
		{Segment: types.ScriptSegment{Index: 0}, Path: dir + "/it's.mp3"},
	}

	listPath, err := writeConcatList(segments)
	require.NoError(t, err)
	defer os.Remove(listPath)

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	require.Contains(t, string(data), `it'\''s.mp3`)
	require.True(t, strings.HasPrefix(string(data), "file '"))
}
