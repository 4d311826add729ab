package tts

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"briefcast/heartbeat"
	"briefcast/resilience"
	"briefcast/types"
)

// DurationFunc measures the playable length of a written clip in seconds.
// The audio package supplies an ffprobe-backed implementation; tests inject
// a stub.
type DurationFunc func(path string) (float64, error)

// Gateway fans script segments out to a synthesizer worker pool and returns
// the clips in script order. One failed segment, after retries, fails the
// whole batch.
type Gateway struct {
	synth    Synthesizer
	voice    string
	workers  int
	retry    resilience.Config
	duration DurationFunc
	hb       *heartbeat.Heartbeat
}

// NewGateway wires a gateway around synth. workers <= 0 falls back to 1.
// duration may be nil; segments then keep a zero duration and the assembler
// estimates from text length.
func NewGateway(synth Synthesizer, voice string, workers int, retry resilience.Config, duration DurationFunc, hb *heartbeat.Heartbeat) *Gateway {
	if workers <= 0 {
		workers = 1
	}
	return &Gateway{
		synth:    synth,
		voice:    voice,
		workers:  workers,
		retry:    retry,
		duration: duration,
		hb:       hb,
	}
}

// Synthesize renders every segment into dir as segment_NNN.<format> and
// returns audio segments in the same order as the input script.
func (g *Gateway) Synthesize(ctx context.Context, segments []types.ScriptSegment, dir string) ([]types.AudioSegment, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("synthesis dir: %w", err)
	}

	results := make([]types.AudioSegment, len(segments))

	completions := make(chan string, len(segments))
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for msg := range completions {
			if g.hb != nil {
				g.hb.Tick(msg)
			}
		}
	}()

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.workers)
	for i, seg := range segments {
		grp.Go(func() error {
			out, err := g.renderSegment(gctx, seg, dir)
			if err != nil {
				return err
			}
			results[i] = out
			completions <- fmt.Sprintf("synthesized segment %d/%d", seg.Index+1, len(segments))
			return nil
		})
	}

	err := grp.Wait()
	close(completions)
	<-collectorDone
	if err != nil {
		return nil, err
	}

	if g.hb != nil {
		g.hb.Force(fmt.Sprintf("synthesis complete: %d segments", len(segments)))
	}
	return results, nil
}

func (g *Gateway) renderSegment(ctx context.Context, seg types.ScriptSegment, dir string) (types.AudioSegment, error) {
	var path string
	op := fmt.Sprintf("%s tts segment %d", g.synth.Name(), seg.Index)

	err := resilience.Retry(ctx, g.retry, op, func() error {
		audio, err := g.synth.Synthesize(ctx, seg.Text, g.voice)
		if err != nil {
			return err
		}
		if audio == nil || len(audio.Data) == 0 {
			return ErrEmptyAudio
		}
		path = filepath.Join(dir, fmt.Sprintf("segment_%03d.%s", seg.Index, audio.Format))
		return os.WriteFile(path, audio.Data, 0o644)
	})
	if err != nil {
		return types.AudioSegment{}, err
	}

	out := types.AudioSegment{Segment: seg, Path: path}
	if g.duration != nil {
		d, err := g.duration(path)
		if err != nil {
			log.Printf("probe duration for %s failed, will estimate from text: %v", path, err)
		} else {
			out.Duration = d
		}
	}
	return out, nil
}
