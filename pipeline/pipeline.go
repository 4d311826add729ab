// Package pipeline wires the digest stages together: load, enrich, cluster,
// score, narrate, synthesize, assemble, commit, publish.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"briefcast/audio"
	"briefcast/cluster"
	"briefcast/config"
	"briefcast/fetch"
	"briefcast/gate"
	"briefcast/heartbeat"
	"briefcast/narrate"
	"briefcast/publish"
	"briefcast/resilience"
	"briefcast/score"
	"briefcast/tts"
	"briefcast/types"
)

// Pipeline holds the wired stages for repeated runs.
type Pipeline struct {
	cfg       *config.Config
	fetcher   *fetch.Fetcher
	cache     *fetch.RedisCache
	clusterer *cluster.Clusterer
	scorer    *score.Scorer
	narrator  *narrate.Narrator
	gateway   *tts.Gateway
	publisher *publish.Publisher
	now       func() time.Time
}

// New builds a pipeline from configuration and environment credentials.
func New(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	creds := config.Creds()

	var cache *fetch.RedisCache
	if cfg.Fetch.RedisAddr != "" {
		var err error
		cache, err = fetch.NewRedisCache(cfg.Fetch.RedisAddr, "", 0,
			time.Duration(cfg.Fetch.CacheTTLSeconds)*time.Second)
		if err != nil {
			log.Printf("content cache unavailable, continuing without: %v", err)
			cache = nil
		}
	}
	var fetchCache fetch.Cache
	if cache != nil {
		fetchCache = cache
	}
	fetcher := fetch.New(time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second, cfg.Fetch.MaxBytes, fetchCache)

	embeddings := cluster.NewEmbeddingsProvider(creds.CohereAPIKey, creds.OpenAIAPIKey, cfg.Cluster.EmbeddingModel)
	if embeddings == nil {
		log.Printf("no embeddings credentials, semantic clustering disabled")
	}
	clusterer := cluster.New(cluster.Config{
		FuzzyThreshold:     cfg.Cluster.FuzzyThreshold,
		EmbeddingThreshold: cfg.Cluster.EmbeddingThreshold,
	}, embeddings, newHeartbeat(cfg, "clustering"))

	chat := narrate.NewCohereChat(creds.CohereAPIKey, cfg.Narrate.Model,
		time.Duration(cfg.Narrate.TimeoutSeconds)*time.Second)

	var model score.ModelClient
	if chat != nil {
		model = chat
	}
	scorer := score.New(model, score.Config{
		LengthCutoff:    cfg.Score.LengthCutoff,
		LongShare:       cfg.Score.LongShare,
		PlatformWeights: cfg.Score.PlatformWeights,
	})

	var chatClient narrate.ChatClient
	if chat != nil {
		chatClient = chat
	}
	narrator := narrate.New(chatClient, narrate.Config{
		MaxSnippets:  cfg.Narrate.MaxSnippets,
		SnippetChars: cfg.Narrate.SnippetChars,
		Retry:        retryConfig(cfg.Narrate.Retry),
		Intro:        cfg.Narrate.Intro,
		Outro:        cfg.Narrate.Outro,
	}, newHeartbeat(cfg, "narration"))

	synth, err := tts.NewSynthesizer(tts.Config{
		Provider:        cfg.TTS.Provider,
		Endpoint:        cfg.TTS.Endpoint,
		APIKey:          cfg.TTS.APIKey,
		Format:          cfg.TTS.Format,
		Timeout:         time.Duration(cfg.TTS.TimeoutSeconds) * time.Second,
		PiperBinary:     cfg.TTS.Piper.Binary,
		PiperModelPath:  cfg.TTS.Piper.ModelPath,
		SherpaBinary:    cfg.TTS.Sherpa.Binary,
		SherpaModelDir:  cfg.TTS.Sherpa.ModelDir,
		SherpaModel:     cfg.TTS.Sherpa.Model,
		SherpaTokens:    cfg.TTS.Sherpa.Tokens,
		SherpaDataDir:   cfg.TTS.Sherpa.DataDir,
		SherpaSpeakerID: cfg.TTS.Sherpa.SpeakerID,
		SherpaSpeed:     cfg.TTS.Sherpa.Speed,
	})
	if err != nil {
		return nil, err
	}
	gateway := tts.NewGateway(synth, cfg.TTS.Voice, cfg.TTS.Workers,
		retryConfig(cfg.TTS.Retry), audio.ProbeDuration, newHeartbeat(cfg, "synthesis"))

	publisher, err := publish.New(ctx, publish.Config{
		Bucket: cfg.Publish.Bucket,
		Prefix: cfg.Publish.Prefix,
		Region: cfg.Publish.Region,
	})
	if err != nil {
		log.Printf("publisher unavailable, continuing without: %v", err)
		publisher = nil
	}

	return &Pipeline{
		cfg:       cfg,
		fetcher:   fetcher,
		cache:     cache,
		clusterer: clusterer,
		scorer:    scorer,
		narrator:  narrator,
		gateway:   gateway,
		publisher: publisher,
		now:       time.Now,
	}, nil
}

// Close releases the content cache connection, if any.
func (p *Pipeline) Close() error {
	if p.cache != nil {
		return p.cache.Close()
	}
	return nil
}

func newHeartbeat(cfg *config.Config, label string) *heartbeat.Heartbeat {
	return heartbeat.New(label, cfg.HeartbeatInterval(), cfg.Heartbeat.EveryItems)
}

func retryConfig(r config.RetryConfig) resilience.Config {
	return resilience.Config{
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   r.BaseDelay(),
		MaxDelay:    r.MaxDelay(),
		Fixed:       r.Fixed,
	}
}

func (p *Pipeline) runState() gate.RunState {
	pub := p.cfg.Output.PublicDir
	return gate.RunState{
		AudioPath:      filepath.Join(pub, p.cfg.Output.AudioFilename),
		ChaptersPath:   filepath.Join(pub, p.cfg.Output.ChaptersFilename),
		TranscriptPath: filepath.Join(pub, p.cfg.Output.TranscriptFilename),
	}
}

// Run executes one full digest cycle. A run that is not yet due returns
// nil; partial results never reach the public directory.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.cfg.Enabled {
		log.Printf("digest disabled, skipping run")
		return nil
	}

	state := p.runState()
	if last, ok := state.LastSuccess(); ok {
		if !gate.ShouldRun(last, p.now(), p.cfg.Interval()) {
			log.Printf("last digest at %s, next due %s, skipping",
				last.Format(time.RFC3339), last.Add(p.cfg.Interval()).Format(time.RFC3339))
			return nil
		}
	}

	items, err := types.LoadItems(p.cfg.InputPath)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	if len(items) == 0 {
		log.Printf("no news items at %s, nothing to narrate", p.cfg.InputPath)
		return nil
	}
	log.Printf("loaded %d news items", len(items))

	p.fetcher.Enrich(ctx, items)

	clusters, err := p.clusterer.Cluster(ctx, items)
	if err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	log.Printf("%d items clustered into %d events", len(items), len(clusters))

	scored := p.scorer.ScoreAll(ctx, clusters)

	script, err := p.narrator.Summarize(ctx, scored)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	workDir, err := os.MkdirTemp(p.cfg.Output.Dir, "run-*")
	if err != nil {
		return fmt.Errorf("work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	segments, err := p.gateway.Synthesize(ctx, script, filepath.Join(workDir, "segments"))
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	result, err := audio.Assemble(segments, filepath.Join(workDir, p.cfg.Output.AudioFilename))
	if err != nil {
		return err
	}
	log.Printf("assembled %.1fs digest with %d chapters", result.Duration, len(result.Chapters))

	chaptersPath := filepath.Join(workDir, p.cfg.Output.ChaptersFilename)
	if err := writeChapters(result.Chapters, chaptersPath); err != nil {
		return err
	}
	transcriptPath := filepath.Join(workDir, p.cfg.Output.TranscriptFilename)
	if err := os.WriteFile(transcriptPath, []byte(result.Transcript), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}

	if err := p.commit(result.AudioPath, chaptersPath, transcriptPath, state); err != nil {
		return err
	}
	log.Printf("digest committed to %s", p.cfg.Output.PublicDir)

	p.publisher.Publish(ctx, state.AudioPath, state.ChaptersPath, state.TranscriptPath)
	return nil
}

func writeChapters(chapters []types.Chapter, path string) error {
	data, err := json.MarshalIndent(chapters, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chapters: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write chapters: %w", err)
	}
	return nil
}

// commit moves the staged trio into the public directory. Companions land
// before the audio file so its mtime marks the completed run.
func (p *Pipeline) commit(audioPath, chaptersPath, transcriptPath string, state gate.RunState) error {
	if err := os.MkdirAll(p.cfg.Output.PublicDir, 0o755); err != nil {
		return fmt.Errorf("public dir: %w", err)
	}
	steps := []struct{ src, dst string }{
		{chaptersPath, state.ChaptersPath},
		{transcriptPath, state.TranscriptPath},
		{audioPath, state.AudioPath},
	}
	for _, s := range steps {
		if err := copyFile(s.src, s.dst); err != nil {
			return fmt.Errorf("commit %s: %w", filepath.Base(s.dst), err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
