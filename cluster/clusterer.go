// Package cluster groups near-duplicate news items into events using a
// lexical pass followed by an optional semantic pass over title embeddings.
package cluster

import (
	"context"
	"fmt"
	"log"
	"math"
	"regexp"
	"sort"
	"strings"

	"briefcast/heartbeat"
	"briefcast/types"

	"github.com/google/uuid"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Config tunes both matching stages.
type Config struct {
	// FuzzyThreshold is the minimum token-set ratio (0-100) for a lexical
	// merge.
	FuzzyThreshold int
	// EmbeddingThreshold is the minimum cosine similarity for a semantic
	// merge.
	EmbeddingThreshold float64
	// SnippetChars caps how much item content feeds the embedding text.
	SnippetChars int
}

// Clusterer partitions news items into event clusters. A nil embeddings
// provider switches off the semantic stage; every item not matched
// lexically then opens its own cluster.
type Clusterer struct {
	cfg        Config
	embeddings EmbeddingsProvider
	hb         *heartbeat.Heartbeat
}

// New builds a clusterer. provider and hb may be nil.
func New(cfg Config, provider EmbeddingsProvider, hb *heartbeat.Heartbeat) *Clusterer {
	if cfg.SnippetChars <= 0 {
		cfg.SnippetChars = 500
	}
	if cfg.EmbeddingThreshold <= 0 {
		cfg.EmbeddingThreshold = 0.82
	}
	return &Clusterer{cfg: cfg, embeddings: provider, hb: hb}
}

// open tracks per-cluster state that only matters while clustering runs.
type open struct {
	cluster   *types.Cluster
	normTitle string
	// vectors counts how many member embeddings the centroid averages.
	vectors int
	sources map[string]struct{}
}

// Cluster partitions items into event clusters, ordered by descending
// aggregate importance with ties broken by earliest first-seen. Every input
// item lands in exactly one cluster; per-item embedding failures open a new
// cluster instead of aborting.
func (c *Clusterer) Cluster(ctx context.Context, items []*types.NewsItem) ([]*types.Cluster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opens []*open
	for i, item := range items {
		opens = c.place(ctx, opens, item)
		if c.hb != nil {
			c.hb.Tick(fmt.Sprintf("clustered %d/%d items into %d events", i+1, len(items), len(opens)))
		}
	}

	clusters := make([]*types.Cluster, 0, len(opens))
	for _, o := range opens {
		o.cluster.Sources = sortedSources(o.sources)
		clusters = append(clusters, o.cluster)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		wi, wj := importance(clusters[i]), importance(clusters[j])
		if wi != wj {
			return wi > wj
		}
		fi, fj := clusters[i].FirstSeen(), clusters[j].FirstSeen()
		if fi.IsZero() {
			return false
		}
		if fj.IsZero() {
			return true
		}
		return fi.Before(fj)
	})

	return clusters, nil
}

// place runs both matching stages for one item and returns the updated set
// of open clusters.
func (c *Clusterer) place(ctx context.Context, opens []*open, item *types.NewsItem) []*open {
	norm := NormalizeTitle(item.Title)

	// Stage 1: lexical match against representative titles.
	if best := c.bestLexicalMatch(opens, norm); best != nil {
		best.merge(item, norm, nil)
		return opens
	}

	// Stage 2: semantic match against centroids, skipped without a provider.
	if c.embeddings != nil {
		vec, err := c.embedItem(ctx, item)
		if err != nil {
			log.Printf("embedding failed for %q, starting new cluster: %v", item.Title, err)
		} else {
			if best := c.bestSemanticMatch(opens, vec); best != nil {
				best.merge(item, norm, vec)
				return opens
			}
			return append(opens, newOpen(item, norm, vec))
		}
	}

	return append(opens, newOpen(item, norm, nil))
}

func (c *Clusterer) bestLexicalMatch(opens []*open, norm string) *open {
	var best *open
	bestScore := 0
	for _, o := range opens {
		score := fuzzy.TokenSetRatio(norm, o.normTitle)
		if score >= c.cfgFuzzy() && score > bestScore {
			best = o
			bestScore = score
		}
	}
	return best
}

func (c *Clusterer) bestSemanticMatch(opens []*open, vec []float32) *open {
	var best *open
	bestSim := 0.0
	for _, o := range opens {
		if o.cluster.Centroid == nil {
			continue
		}
		sim := Cosine(vec, o.cluster.Centroid)
		if sim >= c.cfg.EmbeddingThreshold && sim > bestSim {
			best = o
			bestSim = sim
		}
	}
	return best
}

func (c *Clusterer) embedItem(ctx context.Context, item *types.NewsItem) ([]float32, error) {
	text := item.Title
	if content := item.Text(); content != item.Title {
		trimmed := content
		if len(trimmed) > c.cfg.SnippetChars {
			trimmed = trimmed[:c.cfg.SnippetChars]
		}
		text = item.Title + "\n" + trimmed
	}

	vecs, err := c.embeddings.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("provider returned %d vectors for one text", len(vecs))
	}
	return vecs[0], nil
}

func (c *Clusterer) cfgFuzzy() int {
	if c.cfg.FuzzyThreshold <= 0 {
		return 90
	}
	return c.cfg.FuzzyThreshold
}

func newOpen(item *types.NewsItem, norm string, vec []float32) *open {
	o := &open{
		cluster: &types.Cluster{
			ID:    uuid.NewString(),
			Items: []*types.NewsItem{item},
			Title: item.Title,
		},
		normTitle: norm,
		sources:   map[string]struct{}{},
	}
	if item.Source != "" {
		o.sources[item.Source] = struct{}{}
	}
	if vec != nil {
		o.cluster.Centroid = vec
		o.vectors = 1
	}
	return o
}

// merge adds an item to an open cluster, keeping the longest title variant
// as representative and folding the vector into the running-mean centroid.
func (o *open) merge(item *types.NewsItem, norm string, vec []float32) {
	o.cluster.Items = append(o.cluster.Items, item)
	if len(item.Title) > len(o.cluster.Title) {
		o.cluster.Title = item.Title
		o.normTitle = norm
	}
	if item.Source != "" {
		o.sources[item.Source] = struct{}{}
	}
	if vec != nil {
		if o.cluster.Centroid == nil {
			o.cluster.Centroid = vec
			o.vectors = 1
		} else {
			o.cluster.Centroid = runningMean(o.cluster.Centroid, vec, o.vectors)
			o.vectors++
		}
	}
}

// runningMean folds next into a mean of n prior vectors.
func runningMean(mean, next []float32, n int) []float32 {
	if len(mean) != len(next) {
		return mean
	}
	out := make([]float32, len(mean))
	fn := float32(n)
	for i := range mean {
		out[i] = (mean[i]*fn + next[i]) / (fn + 1)
	}
	return out
}

// importance is the ordering weight of a cluster: total mention count plus
// a bonus for good on-platform ranks (rank 1 is worth the most).
func importance(c *types.Cluster) int {
	w := 0
	for _, item := range c.Items {
		if item.Count > 0 {
			w += item.Count
		} else {
			w++
		}
		if item.Rank > 0 && item.Rank <= 100 {
			w += 101 - item.Rank
		}
	}
	return w
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// NormalizeTitle lowercases, strips punctuation, and collapses whitespace.
func NormalizeTitle(title string) string {
	lowered := strings.ToLower(title)
	cleaned := nonWord.ReplaceAllString(lowered, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

// Cosine returns the cosine similarity of two vectors, 0 when either has
// zero magnitude or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sortedSources(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
