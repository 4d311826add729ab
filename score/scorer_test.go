package score

import (
	"context"
	"errors"
	"strings"
	"testing"

	"briefcast/types"

	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	replies map[string]string // keyed by cluster title substring
	err     error
	calls   int
}

func (f *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	for key, reply := range f.replies {
		if strings.Contains(prompt, key) {
			return reply, nil
		}
	}
	return "0", nil
}

func cluster(title string, sources ...string) *types.Cluster {
	items := make([]*types.NewsItem, len(sources))
	for i, s := range sources {
		items[i] = &types.NewsItem{Title: title, Source: s, Rank: i + 1, Count: 1}
	}
	return &types.Cluster{ID: title, Items: items, Title: title, Sources: sources}
}

func TestScoreAllCoversEveryCluster(t *testing.T) {
	model := &fakeModel{replies: map[string]string{
		"rate cut": "92",
		"storm":    "40",
		"gadget":   "15",
	}}
	s := New(model, Config{LengthCutoff: 70})

	clusters := []*types.Cluster{
		cluster("rate cut announced", "a", "b"),
		cluster("storm warning issued", "a"),
		cluster("gadget released", "c"),
	}

	scored := s.ScoreAll(context.Background(), clusters)
	require.Len(t, scored, len(clusters), "every cluster must receive a score")

	require.Equal(t, 92, scored[0].Score)
	require.Equal(t, types.LengthLong, scored[0].Length)
	require.Equal(t, 40, scored[1].Score)
	require.Equal(t, types.LengthShort, scored[1].Length)
	require.Equal(t, types.LengthShort, scored[2].Length)
}

func TestModelErrorClampsToZero(t *testing.T) {
	s := New(&fakeModel{err: errors.New("rate limited")}, Config{LengthCutoff: 70})

	sc := s.Score(context.Background(), cluster("anything", "a"))
	require.Zero(t, sc.Score, "model failure degrades to low priority, never fails the run")
}

func TestNilModelScoresZero(t *testing.T) {
	s := New(nil, Config{LengthCutoff: 70})
	sc := s.Score(context.Background(), cluster("anything", "a"))
	require.Zero(t, sc.Score)
}

func TestDistributionRuleTopShareIsLong(t *testing.T) {
	model := &fakeModel{replies: map[string]string{
		"first":  "90",
		"second": "60",
		"third":  "30",
		"fourth": "10",
	}}
	s := New(model, Config{LongShare: 0.3})

	scored := s.ScoreAll(context.Background(), []*types.Cluster{
		cluster("first event", "a"),
		cluster("second event", "a"),
		cluster("third event", "a"),
		cluster("fourth event", "a"),
	})

	// ceil(0.3 * 4) = 2 long clusters.
	longs := 0
	for _, sc := range scored {
		if sc.Length == types.LengthLong {
			longs++
		}
	}
	require.Equal(t, 2, longs)
	require.Equal(t, types.LengthLong, scored[0].Length)
	require.Equal(t, types.LengthLong, scored[1].Length)
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"85", 85},
		{"Score: 42.", 42},
		{"150", 100},
		{"-5", 0},
		{"no number here", 0},
		{"", 0},
		{"I would rate this 77 out of 100", 77},
	}
	for _, tt := range tests {
		if got := ParseScore(tt.in); got != tt.want {
			t.Fatalf("ParseScore(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
