// Package narrate turns scored event clusters into an ordered narration
// script via an external language model.
package narrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"briefcast/heartbeat"
	"briefcast/resilience"
	"briefcast/types"
)

// DefaultIntro and DefaultOutro carry the fixed disclaimer; they are never
// sent to the model.
const (
	DefaultIntro = "Welcome to today's news briefing. The following summaries " +
		"are generated from publicly available reporting and may require " +
		"verification against the original sources."
	DefaultOutro = "That concludes today's briefing. All items were compiled " +
		"from publicly available reporting and may require verification " +
		"against the original sources."
)

// Config tunes the narration orchestrator.
type Config struct {
	// MaxSnippets caps member snippets per request.
	MaxSnippets int
	// SnippetChars caps each snippet.
	SnippetChars int
	// Retry governs per-cluster request retries; exhaustion fails the run.
	Retry resilience.Config
	// Intro and Outro override the fixed disclaimer segments.
	Intro string
	Outro string
}

// Narrator builds one script segment per scored cluster plus the fixed
// intro and outro.
type Narrator struct {
	chat ChatClient
	cfg  Config
	hb   *heartbeat.Heartbeat
}

// New builds a narrator. chat must not be nil.
func New(chat ChatClient, cfg Config, hb *heartbeat.Heartbeat) *Narrator {
	if cfg.MaxSnippets <= 0 {
		cfg.MaxSnippets = 6
	}
	if cfg.SnippetChars <= 0 {
		cfg.SnippetChars = 300
	}
	if cfg.Intro == "" {
		cfg.Intro = DefaultIntro
	}
	if cfg.Outro == "" {
		cfg.Outro = DefaultOutro
	}
	return &Narrator{chat: chat, cfg: cfg, hb: hb}
}

const summaryPrompt = `Summarize the following news event for a spoken
digest. Keep a strictly neutral tone. Reply with JSON only, no surrounding
text, in this exact shape:
{"title": "...", "summary": "...", "short_summary": "...", "sources_line": "..."}
- title: a short display title for the event.
- summary: 2-3 sentences.
- short_summary: 1 sentence.
- sources_line: one spoken sentence confirming the reporting platforms,
  e.g. "This event appears on A, B, and C."

Event data: %s`

// Reply is the structured response expected from the model.
type Reply struct {
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	ShortSummary string `json:"short_summary"`
	SourcesLine  string `json:"sources_line"`
}

// request is the payload describing one cluster to the model.
type request struct {
	Title   string    `json:"title"`
	Sources []string  `json:"sources"`
	Items   []snippet `json:"items"`
}

type snippet struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
	Source  string `json:"source"`
}

// Summarize produces the full ordered script: intro, one segment per
// scored cluster (input order preserved), outro. A cluster whose narration
// request exhausts its retries fails the whole run; partial scripts are
// never returned.
func (n *Narrator) Summarize(ctx context.Context, scored []*types.ScoredCluster) ([]types.ScriptSegment, error) {
	if n.chat == nil {
		return nil, errors.New("narration requires a configured chat client")
	}

	segments := make([]types.ScriptSegment, 0, len(scored)+2)
	segments = append(segments, types.ScriptSegment{Index: 0, Text: n.cfg.Intro})

	for i, sc := range scored {
		seg, err := n.summarizeCluster(ctx, sc)
		if err != nil {
			return nil, fmt.Errorf("narrate cluster %q: %w", sc.Cluster.Title, err)
		}
		seg.Index = i + 1
		segments = append(segments, seg)
		if n.hb != nil {
			n.hb.Tick(fmt.Sprintf("narrated %d/%d events", i+1, len(scored)))
		}
	}

	segments = append(segments, types.ScriptSegment{Index: len(segments), Text: n.cfg.Outro})
	return segments, nil
}

func (n *Narrator) summarizeCluster(ctx context.Context, sc *types.ScoredCluster) (types.ScriptSegment, error) {
	payload, err := json.Marshal(n.requestFor(sc.Cluster))
	if err != nil {
		return types.ScriptSegment{}, err
	}
	prompt := fmt.Sprintf(summaryPrompt, payload)

	var reply Reply
	err = resilience.Retry(ctx, n.cfg.Retry, "narration request", func() error {
		raw, err := n.chat.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		parsed, err := ParseReply(raw)
		if err != nil {
			return err
		}
		reply = *parsed
		return nil
	})
	if err != nil {
		return types.ScriptSegment{}, err
	}

	title := reply.Title
	if title == "" {
		title = sc.Cluster.Title
	}

	text := reply.Summary
	if sc.Length == types.LengthShort && reply.ShortSummary != "" {
		text = reply.ShortSummary
	}

	line := reply.SourcesLine
	if line == "" {
		line = SpokenSources(sc.Cluster.Sources)
	}
	if line != "" {
		text = strings.TrimSpace(text) + " " + line
	}

	return types.ScriptSegment{
		Cluster: sc,
		Title:   title,
		Text:    strings.TrimSpace(text),
		Sources: sc.Cluster.Sources,
	}, nil
}

func (n *Narrator) requestFor(c *types.Cluster) request {
	req := request{Title: c.Title, Sources: c.Sources}
	for _, item := range c.Items {
		if len(req.Items) >= n.cfg.MaxSnippets {
			break
		}
		text := item.Text()
		if text == item.Title {
			text = ""
		} else if len(text) > n.cfg.SnippetChars {
			text = text[:n.cfg.SnippetChars]
		}
		req.Items = append(req.Items, snippet{Title: item.Title, Snippet: text, Source: item.Source})
	}
	return req
}

var jsonBlob = regexp.MustCompile(`(?s)\{.*\}`)

// ParseReply extracts the first JSON object from a model reply. Replies
// without a usable summary are an error so the retry loop sees them as
// transient.
func ParseReply(raw string) (*Reply, error) {
	match := jsonBlob.FindString(raw)
	if match == "" {
		return nil, errors.New("reply contains no JSON object")
	}
	var reply Reply
	if err := json.Unmarshal([]byte(match), &reply); err != nil {
		return nil, fmt.Errorf("malformed reply JSON: %w", err)
	}
	if reply.Summary == "" && reply.ShortSummary == "" {
		return nil, errors.New("reply contains no summary")
	}
	if reply.Summary == "" {
		reply.Summary = reply.ShortSummary
	}
	if reply.ShortSummary == "" {
		reply.ShortSummary = reply.Summary
	}
	return &reply, nil
}

// SpokenSources formats a platform list for narration.
func SpokenSources(sources []string) string {
	switch len(sources) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("This event appears on %s.", sources[0])
	case 2:
		return fmt.Sprintf("This event appears on %s and %s.", sources[0], sources[1])
	default:
		head := strings.Join(sources[:len(sources)-1], ", ")
		return fmt.Sprintf("This event appears on %s, and %s.", head, sources[len(sources)-1])
	}
}
