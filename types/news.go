package types

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// LengthClass selects how much narration a cluster receives.
type LengthClass string

const (
	LengthLong  LengthClass = "long"
	LengthShort LengthClass = "short"
)

// NewsItem is a single crawled headline. Items are immutable once ingested
// and owned by the pipeline run that loaded them; only the content
// enrichment stage fills Content before clustering starts.
type NewsItem struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Source    string    `json:"source"`
	Rank      int       `json:"rank,omitempty"`
	Count     int       `json:"count,omitempty"`
	Content   string    `json:"content,omitempty"`
	Snippet   string    `json:"snippet,omitempty"`
	FirstSeen time.Time `json:"first_seen,omitempty"`
}

// Text returns the most complete text available for the item.
// Priority order: Content > Snippet > Title.
func (n *NewsItem) Text() string {
	if n.Content != "" {
		return n.Content
	}
	if n.Snippet != "" {
		return n.Snippet
	}
	return n.Title
}

// Cluster groups items judged to describe the same event. Member order is
// discovery order. Centroid is set only when semantic matching contributed
// at least one member; it is the running mean of those members' vectors.
// Clusters are mutated by the clustering stage only and frozen afterwards.
type Cluster struct {
	ID       string      `json:"id"`
	Items    []*NewsItem `json:"items"`
	Title    string      `json:"title"`
	Centroid []float32   `json:"-"`
	Sources  []string    `json:"sources"`
}

// FirstSeen returns the earliest first-seen timestamp among members.
func (c *Cluster) FirstSeen() time.Time {
	var earliest time.Time
	for _, item := range c.Items {
		if item.FirstSeen.IsZero() {
			continue
		}
		if earliest.IsZero() || item.FirstSeen.Before(earliest) {
			earliest = item.FirstSeen
		}
	}
	return earliest
}

// BestRank returns the lowest positive rank among members, or 0 when no
// member carries a rank.
func (c *Cluster) BestRank() int {
	best := 0
	for _, item := range c.Items {
		if item.Rank <= 0 {
			continue
		}
		if best == 0 || item.Rank < best {
			best = item.Rank
		}
	}
	return best
}

// TotalCount sums member mention counts, treating a missing count as 1.
func (c *Cluster) TotalCount() int {
	total := 0
	for _, item := range c.Items {
		if item.Count > 0 {
			total += item.Count
		} else {
			total++
		}
	}
	return total
}

// ScoredCluster annotates a frozen Cluster with its priority score (0-100)
// and narration length class. The underlying Cluster is never mutated.
type ScoredCluster struct {
	Cluster *Cluster
	Score   int
	Length  LengthClass
}

// ScriptSegment is one narrated unit of the digest. Cluster is nil for the
// fixed intro and outro segments, which also never produce chapters.
type ScriptSegment struct {
	Index   int
	Cluster *ScoredCluster
	Title   string
	Text    string
	Sources []string
}

// AudioSegment pairs a script segment with its synthesized audio file.
// Duration is in seconds; zero means the prober could not measure it and
// the assembler will estimate from text length instead.
type AudioSegment struct {
	Segment  ScriptSegment
	Path     string
	Duration float64
}

// Chapter marks where one event starts inside the final audio.
type Chapter struct {
	Title   string   `json:"title"`
	Start   int      `json:"start"`
	Sources []string `json:"sources"`
}

// LoadItems reads the crawler hand-off file: a JSON array of NewsItems.
func LoadItems(path string) ([]*NewsItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}

	var items []*NewsItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse input %s: %w", path, err)
	}
	return items, nil
}
