package narrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"briefcast/resilience"
	"briefcast/types"

	"github.com/stretchr/testify/require"
)

// flakyChat fails a set number of times per prompt before answering.
type flakyChat struct {
	failures int
	seen     map[string]int
	reply    func(prompt string) string
}

func (f *flakyChat) Generate(_ context.Context, prompt string) (string, error) {
	if f.seen == nil {
		f.seen = map[string]int{}
	}
	f.seen[prompt]++
	if f.seen[prompt] <= f.failures {
		return "", errors.New("upstream timeout")
	}
	return f.reply(prompt), nil
}

func fastRetry(attempts int) resilience.Config {
	return resilience.Config{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func scoredCluster(title string, length types.LengthClass, sources ...string) *types.ScoredCluster {
	items := make([]*types.NewsItem, len(sources))
	for i, s := range sources {
		items[i] = &types.NewsItem{Title: title, Source: s}
	}
	return &types.ScoredCluster{
		Cluster: &types.Cluster{ID: title, Items: items, Title: title, Sources: sources},
		Score:   50,
		Length:  length,
	}
}

func jsonReply(title string) string {
	return fmt.Sprintf(`{"title": %q, "summary": "Two sentences about it. More detail here.", `+
		`"short_summary": "One sentence about it.", "sources_line": "This event appears on A and B."}`, title)
}

func TestSummarizeBuildsOrderedScript(t *testing.T) {
	chat := &flakyChat{reply: func(prompt string) string {
		switch {
		case strings.Contains(prompt, "first event"):
			return jsonReply("First")
		default:
			return jsonReply("Second")
		}
	}}
	n := New(chat, Config{Retry: fastRetry(3)}, nil)

	scored := []*types.ScoredCluster{
		scoredCluster("first event", types.LengthLong, "a", "b"),
		scoredCluster("second event", types.LengthShort, "c"),
	}

	segments, err := n.Summarize(context.Background(), scored)
	require.NoError(t, err)
	require.Len(t, segments, 4, "intro + 2 clusters + outro")

	require.Nil(t, segments[0].Cluster)
	require.Equal(t, DefaultIntro, segments[0].Text)
	require.Nil(t, segments[3].Cluster)
	require.Equal(t, DefaultOutro, segments[3].Text)

	require.Equal(t, "First", segments[1].Title)
	require.Contains(t, segments[1].Text, "Two sentences")
	require.Equal(t, scored[0], segments[1].Cluster)

	// Short clusters voice the one-sentence variant.
	require.Contains(t, segments[2].Text, "One sentence")
	require.NotContains(t, segments[2].Text, "Two sentences")

	for i, seg := range segments {
		require.Equal(t, i, seg.Index)
	}
}

func TestSummarizeRetriesThenSucceeds(t *testing.T) {
	chat := &flakyChat{failures: 2, reply: func(string) string { return jsonReply("Event") }}
	n := New(chat, Config{Retry: fastRetry(3)}, nil)

	segments, err := n.Summarize(context.Background(), []*types.ScoredCluster{
		scoredCluster("an event", types.LengthLong, "a"),
	})
	require.NoError(t, err)
	require.Len(t, segments, 3)
}

func TestSummarizeExhaustionFailsRun(t *testing.T) {
	chat := &flakyChat{failures: 99, reply: func(string) string { return jsonReply("Event") }}
	n := New(chat, Config{Retry: fastRetry(3)}, nil)

	_, err := n.Summarize(context.Background(), []*types.ScoredCluster{
		scoredCluster("an event", types.LengthLong, "a"),
	})
	require.Error(t, err, "partial narration is unacceptable; exhaustion fails the run")
}

func TestMalformedReplyIsRetriedUntilExhaustion(t *testing.T) {
	chat := &flakyChat{reply: func(string) string { return "sorry, I cannot help with that" }}
	n := New(chat, Config{Retry: fastRetry(2)}, nil)

	_, err := n.Summarize(context.Background(), []*types.ScoredCluster{
		scoredCluster("an event", types.LengthLong, "a"),
	})
	require.Error(t, err)
}

func TestParseReply(t *testing.T) {
	reply, err := ParseReply("Here you go:\n" + jsonReply("T") + "\nHope that helps!")
	require.NoError(t, err)
	require.Equal(t, "T", reply.Title)

	_, err = ParseReply("no json at all")
	require.Error(t, err)

	_, err = ParseReply(`{"title": "t"}`)
	require.Error(t, err, "reply without any summary is malformed")

	reply, err = ParseReply(`{"summary": "only long form."}`)
	require.NoError(t, err)
	require.Equal(t, "only long form.", reply.ShortSummary, "short form backfills from long")
}

func TestSpokenSources(t *testing.T) {
	require.Equal(t, "", SpokenSources(nil))
	require.Equal(t, "This event appears on A.", SpokenSources([]string{"A"}))
	require.Equal(t, "This event appears on A and B.", SpokenSources([]string{"A", "B"}))
	require.Equal(t, "This event appears on A, B, and C.", SpokenSources([]string{"A", "B", "C"}))
}
