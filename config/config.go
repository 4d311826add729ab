// Package config loads briefcast settings from an optional YAML file with
// environment overrides for paths and credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "BRIEFCAST_CONFIG"
	cohereKeyEnv    = "COHERE_API_KEY"
	openAIKeyEnv    = "OPENAI_API_KEY"
	ttsEndpointEnv  = "TTS_ENDPOINT"
	ttsAPIKeyEnv    = "TTS_API_KEY"
	redisAddrEnv    = "REDIS_ADDR"
	s3BucketEnv     = "S3_BUCKET"
	s3PrefixEnv     = "S3_PREFIX"
	s3RegionEnv     = "S3_REGION"
	inputPathEnv    = "BRIEFCAST_INPUT"
	heartbeatEnv    = "BRIEFCAST_HEARTBEAT_SECONDS"
)

// Config is the full configuration surface of the audio digest pipeline.
type Config struct {
	Enabled       bool            `yaml:"enabled"`
	IntervalHours int             `yaml:"intervalHours"`
	InputPath     string          `yaml:"inputPath"`
	Output        OutputConfig    `yaml:"output"`
	Cluster       ClusterConfig   `yaml:"cluster"`
	Score         ScoreConfig     `yaml:"score"`
	Narrate       NarrateConfig   `yaml:"narrate"`
	TTS           TTSConfig       `yaml:"tts"`
	Fetch         FetchConfig     `yaml:"fetch"`
	Publish       PublishConfig   `yaml:"publish"`
	Heartbeat     HeartbeatConfig `yaml:"heartbeat"`
	CronSpec      string          `yaml:"cronSpec"`
}

// OutputConfig names the artifact locations. OutputDir holds scratch and
// staged files; PublicDir receives the committed trio read by the report
// renderer.
type OutputConfig struct {
	Dir                string `yaml:"dir"`
	PublicDir          string `yaml:"publicDir"`
	AudioFilename      string `yaml:"audioFilename"`
	ChaptersFilename   string `yaml:"chaptersFilename"`
	TranscriptFilename string `yaml:"transcriptFilename"`
}

// ClusterConfig tunes the two-stage deduplicator.
type ClusterConfig struct {
	FuzzyThreshold     int     `yaml:"fuzzyThreshold"`
	EmbeddingThreshold float64 `yaml:"embeddingThreshold"`
	EmbeddingModel     string  `yaml:"embeddingModel"`
}

// ScoreConfig tunes the priority scorer. A zero LengthCutoff selects the
// distribution rule: the top LongShare of clusters narrate long.
type ScoreConfig struct {
	LengthCutoff    int                `yaml:"lengthCutoff"`
	LongShare       float64            `yaml:"longShare"`
	PlatformWeights map[string]float64 `yaml:"platformWeights"`
}

// NarrateConfig tunes the narration orchestrator.
type NarrateConfig struct {
	Model          string      `yaml:"model"`
	MaxSnippets    int         `yaml:"maxSnippets"`
	SnippetChars   int         `yaml:"snippetChars"`
	TimeoutSeconds int         `yaml:"timeoutSeconds"`
	Retry          RetryConfig `yaml:"retry"`
	Intro          string      `yaml:"intro"`
	Outro          string      `yaml:"outro"`
}

// TTSConfig selects and tunes the synthesis provider.
type TTSConfig struct {
	Provider       string       `yaml:"provider"` // http | piper | sherpa
	Endpoint       string       `yaml:"endpoint"`
	APIKey         string       `yaml:"apiKey"`
	Voice          string       `yaml:"voice"`
	Format         string       `yaml:"format"`
	Workers        int          `yaml:"workers"`
	TimeoutSeconds int          `yaml:"timeoutSeconds"`
	Retry          RetryConfig  `yaml:"retry"`
	Piper          PiperConfig  `yaml:"piper"`
	Sherpa         SherpaConfig `yaml:"sherpa"`
}

// PiperConfig configures the local neural engine variant.
type PiperConfig struct {
	Binary    string `yaml:"binary"`
	ModelPath string `yaml:"modelPath"`
}

// SherpaConfig configures the CLI-invoked ONNX variant.
type SherpaConfig struct {
	Binary    string  `yaml:"binary"`
	ModelDir  string  `yaml:"modelDir"`
	Model     string  `yaml:"model"`
	Tokens    string  `yaml:"tokens"`
	DataDir   string  `yaml:"dataDir"`
	SpeakerID int     `yaml:"speakerId"`
	Speed     float64 `yaml:"speed"`
}

// FetchConfig tunes the content enrichment stage.
type FetchConfig struct {
	TimeoutSeconds  int    `yaml:"timeoutSeconds"`
	MaxBytes        int64  `yaml:"maxBytes"`
	RedisAddr       string `yaml:"redisAddr"`
	CacheTTLSeconds int    `yaml:"cacheTtlSeconds"`
}

// PublishConfig enables the optional S3 upload of committed artifacts.
type PublishConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// HeartbeatConfig tunes liveness logging.
type HeartbeatConfig struct {
	IntervalSeconds int `yaml:"intervalSeconds"`
	EveryItems      int `yaml:"everyItems"`
}

// RetryConfig maps onto resilience.Config; durations are in milliseconds so
// the YAML stays plain integers.
type RetryConfig struct {
	MaxAttempts int  `yaml:"maxAttempts"`
	BaseDelayMS int  `yaml:"baseDelayMs"`
	MaxDelayMS  int  `yaml:"maxDelayMs"`
	Fixed       bool `yaml:"fixed"`
}

// Credentials resolved from the environment only, never from YAML.
type Credentials struct {
	CohereAPIKey string
	OpenAIAPIKey string
}

// Load reads the YAML file named by BRIEFCAST_CONFIG (if any), fills in
// defaults, applies environment overrides, and validates the result.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Creds returns API credentials from the environment.
func Creds() Credentials {
	return Credentials{
		CohereAPIKey: os.Getenv(cohereKeyEnv),
		OpenAIAPIKey: os.Getenv(openAIKeyEnv),
	}
}

func defaultConfig() *Config {
	return &Config{
		Enabled:       true,
		IntervalHours: DefaultIntervalHours,
	}
}

func (c *Config) applyDefaults() {
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.PublicDir == "" {
		c.Output.PublicDir = DefaultPublicDir
	}
	if c.Output.AudioFilename == "" {
		c.Output.AudioFilename = DefaultAudioFilename
	}
	if c.Output.ChaptersFilename == "" {
		c.Output.ChaptersFilename = DefaultChaptersFilename
	}
	if c.Output.TranscriptFilename == "" {
		c.Output.TranscriptFilename = DefaultTranscriptFilename
	}

	if c.Cluster.FuzzyThreshold == 0 {
		c.Cluster.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if c.Cluster.EmbeddingThreshold == 0 {
		c.Cluster.EmbeddingThreshold = DefaultEmbeddingThreshold
	}
	if c.Cluster.EmbeddingModel == "" {
		c.Cluster.EmbeddingModel = DefaultEmbeddingModel
	}

	if c.Score.LongShare == 0 {
		c.Score.LongShare = DefaultLongShare
	}

	if c.Narrate.Model == "" {
		c.Narrate.Model = DefaultChatModel
	}
	if c.Narrate.MaxSnippets == 0 {
		c.Narrate.MaxSnippets = DefaultMaxSnippets
	}
	if c.Narrate.SnippetChars == 0 {
		c.Narrate.SnippetChars = DefaultSnippetChars
	}
	if c.Narrate.TimeoutSeconds == 0 {
		c.Narrate.TimeoutSeconds = 30
	}

	if c.TTS.Provider == "" {
		c.TTS.Provider = "http"
	}
	if c.TTS.Format == "" {
		c.TTS.Format = DefaultTTSFormat
	}
	if c.TTS.Workers == 0 {
		c.TTS.Workers = DefaultTTSWorkers
	}
	if c.TTS.TimeoutSeconds == 0 {
		c.TTS.TimeoutSeconds = int(DefaultTTSTimeout / time.Second)
	}

	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = int(DefaultFetchTimeout / time.Second)
	}
	if c.Fetch.MaxBytes == 0 {
		c.Fetch.MaxBytes = DefaultFetchMaxBytes
	}
	if c.Fetch.CacheTTLSeconds == 0 {
		c.Fetch.CacheTTLSeconds = int(DefaultFetchCacheTTL / time.Second)
	}

	if c.Heartbeat.IntervalSeconds == 0 {
		c.Heartbeat.IntervalSeconds = DefaultHeartbeatSeconds
	}
	if c.Heartbeat.EveryItems == 0 {
		c.Heartbeat.EveryItems = DefaultHeartbeatEvery
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(inputPathEnv); v != "" {
		c.InputPath = v
	}
	if v := os.Getenv(ttsEndpointEnv); v != "" {
		c.TTS.Endpoint = v
	}
	if v := os.Getenv(ttsAPIKeyEnv); v != "" {
		c.TTS.APIKey = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Fetch.RedisAddr = v
	}
	if v := os.Getenv(s3BucketEnv); v != "" {
		c.Publish.Bucket = v
	}
	if v := os.Getenv(s3PrefixEnv); v != "" {
		c.Publish.Prefix = v
	}
	if v := os.Getenv(s3RegionEnv); v != "" {
		c.Publish.Region = v
	}
	if v := os.Getenv(heartbeatEnv); v != "" {
		var secs int
		if _, err := fmt.Sscanf(v, "%d", &secs); err == nil && secs > 0 {
			c.Heartbeat.IntervalSeconds = secs
		}
	}
}

func (c *Config) validate() error {
	if c.IntervalHours < 0 {
		return fmt.Errorf("intervalHours cannot be negative")
	}
	if c.Cluster.FuzzyThreshold < 0 || c.Cluster.FuzzyThreshold > 100 {
		return fmt.Errorf("cluster.fuzzyThreshold must be within 0-100")
	}
	if c.Cluster.EmbeddingThreshold < 0 || c.Cluster.EmbeddingThreshold > 1 {
		return fmt.Errorf("cluster.embeddingThreshold must be within 0-1")
	}
	if c.Score.LengthCutoff < 0 || c.Score.LengthCutoff > 100 {
		return fmt.Errorf("score.lengthCutoff must be within 0-100")
	}
	if c.Score.LongShare <= 0 || c.Score.LongShare > 1 {
		return fmt.Errorf("score.longShare must be within (0, 1]")
	}
	if c.TTS.Workers <= 0 {
		return fmt.Errorf("tts.workers must be positive")
	}
	switch c.TTS.Provider {
	case "http", "piper", "sherpa":
	default:
		return fmt.Errorf("tts.provider must be one of http, piper, sherpa")
	}
	return nil
}

// Interval returns the minimum spacing between successful runs.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

// HeartbeatInterval returns the configured heartbeat cadence.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Heartbeat.IntervalSeconds) * time.Second
}

// BaseDelay converts the millisecond knob into a time.Duration.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}
