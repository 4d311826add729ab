// Package tts synthesizes narration segments through pluggable
// text-to-speech providers and reassembles results in script order.
package tts

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyAudio marks a provider response with no audio payload. It is
// transient: the retry loop treats it like any network failure.
var ErrEmptyAudio = errors.New("tts: provider returned empty audio")

// Audio is one synthesized clip.
type Audio struct {
	Data   []byte
	Format string // container/extension, e.g. "mp3" or "wav"
}

// Synthesizer converts one text into speech. Implementations must be safe
// for concurrent use; the gateway calls them from multiple workers.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*Audio, error)
	Name() string
}

// Config selects and parameterizes a provider variant.
type Config struct {
	Provider string // http | piper | sherpa
	Endpoint string
	APIKey   string
	Format   string
	Timeout  time.Duration

	PiperBinary    string
	PiperModelPath string

	SherpaBinary    string
	SherpaModelDir  string
	SherpaModel     string
	SherpaTokens    string
	SherpaDataDir   string
	SherpaSpeakerID int
	SherpaSpeed     float64
}

// NewSynthesizer builds the configured provider variant.
func NewSynthesizer(cfg Config) (Synthesizer, error) {
	switch cfg.Provider {
	case "http":
		if cfg.Endpoint == "" {
			return nil, errors.New("tts: http provider requires an endpoint")
		}
		return newHTTPSynthesizer(cfg), nil
	case "piper":
		if cfg.PiperModelPath == "" {
			return nil, errors.New("tts: piper provider requires a model path")
		}
		return newPiperSynthesizer(cfg), nil
	case "sherpa":
		if cfg.SherpaModel == "" {
			return nil, errors.New("tts: sherpa provider requires a model")
		}
		return newSherpaSynthesizer(cfg), nil
	default:
		return nil, fmt.Errorf("tts: unknown provider %q", cfg.Provider)
	}
}
