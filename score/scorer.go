// Package score ranks event clusters and assigns narration length classes.
package score

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"

	"briefcast/types"
)

// ModelClient is the scoring capability: a prompt in, raw model text out.
// The narrate package's chat client satisfies it.
type ModelClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config tunes scoring and the length-class rule.
type Config struct {
	// LengthCutoff, when positive, marks any score >= cutoff as long.
	LengthCutoff int
	// LongShare is the distribution fallback: when no cutoff is set, the
	// top ceil(share * n) clusters narrate long.
	LongShare float64
	// PlatformWeights biases scores per source platform (1.0 = neutral).
	PlatformWeights map[string]float64
}

// Scorer produces a ScoredCluster for every Cluster. Model failures and
// malformed replies clamp to score 0 instead of failing the run, so the
// coverage guarantee holds unconditionally.
type Scorer struct {
	model ModelClient
	cfg   Config
	now   func() time.Time
}

// New builds a scorer. model may be nil, in which case every cluster scores 0.
func New(model ModelClient, cfg Config) *Scorer {
	if cfg.LongShare <= 0 || cfg.LongShare > 1 {
		cfg.LongShare = 0.3
	}
	return &Scorer{model: model, cfg: cfg, now: time.Now}
}

const scorePrompt = `You rank news events for a spoken digest. Given the
event features below, reply with a single integer from 0 to 100 where 100 is
the most important event of the day. Reply with the number only.

Features: %s`

// features is the payload packaged into the scoring request.
type features struct {
	Title        string   `json:"title"`
	BestRank     int      `json:"best_rank"`
	TotalCount   int      `json:"total_count"`
	SourceCount  int      `json:"source_count"`
	Sources      []string `json:"sources"`
	AgeHours     float64  `json:"age_hours"`
	WeightedHint float64  `json:"platform_weight"`
}

// Score produces the ScoredCluster for one cluster. It never returns an
// error: anything the model does wrong degrades to the safe default of 0.
// The length class is filled in later by ScoreAll once the distribution is
// known.
func (s *Scorer) Score(ctx context.Context, c *types.Cluster) *types.ScoredCluster {
	return &types.ScoredCluster{Cluster: c, Score: s.modelScore(ctx, c)}
}

// ScoreAll scores every cluster (none are dropped) and assigns length
// classes, either by explicit cutoff or by the top-share rule.
func (s *Scorer) ScoreAll(ctx context.Context, clusters []*types.Cluster) []*types.ScoredCluster {
	scored := make([]*types.ScoredCluster, len(clusters))
	for i, c := range clusters {
		scored[i] = s.Score(ctx, c)
	}

	if s.cfg.LengthCutoff > 0 {
		for _, sc := range scored {
			sc.Length = types.LengthShort
			if sc.Score >= s.cfg.LengthCutoff {
				sc.Length = types.LengthLong
			}
		}
		return scored
	}

	// Distribution rule: top ceil(share * n) scores narrate long, minimum 1.
	if len(scored) == 0 {
		return scored
	}
	ranked := make([]*types.ScoredCluster, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	longCount := int(math.Ceil(s.cfg.LongShare * float64(len(ranked))))
	if longCount < 1 {
		longCount = 1
	}
	for i, sc := range ranked {
		if i < longCount {
			sc.Length = types.LengthLong
		} else {
			sc.Length = types.LengthShort
		}
	}
	return scored
}

func (s *Scorer) modelScore(ctx context.Context, c *types.Cluster) int {
	if s.model == nil {
		return 0
	}

	payload, err := json.Marshal(s.featuresFor(c))
	if err != nil {
		log.Printf("scoring %q: marshal features: %v", c.Title, err)
		return 0
	}

	reply, err := s.model.Generate(ctx, fmt.Sprintf(scorePrompt, payload))
	if err != nil {
		log.Printf("scoring %q failed, defaulting to 0: %v", c.Title, err)
		return 0
	}

	return ParseScore(reply)
}

func (s *Scorer) featuresFor(c *types.Cluster) features {
	weight := 0.0
	for _, source := range c.Sources {
		if w, ok := s.cfg.PlatformWeights[source]; ok {
			weight += w
		} else {
			weight += 1.0
		}
	}

	age := 0.0
	if first := c.FirstSeen(); !first.IsZero() {
		age = s.now().Sub(first).Hours()
	}

	return features{
		Title:        c.Title,
		BestRank:     c.BestRank(),
		TotalCount:   c.TotalCount(),
		SourceCount:  len(c.Sources),
		Sources:      c.Sources,
		AgeHours:     math.Round(age*10) / 10,
		WeightedHint: weight,
	}
}

var firstInt = regexp.MustCompile(`-?\d+`)

// ParseScore extracts the first integer from a model reply and clamps it to
// 0-100. Non-numeric replies parse as 0.
func ParseScore(reply string) int {
	match := firstInt.FindString(reply)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
