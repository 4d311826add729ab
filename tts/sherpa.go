package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// sherpaSynthesizer runs the sherpa-onnx offline TTS CLI against a local
// ONNX voice model.
type sherpaSynthesizer struct {
	binary    string
	modelDir  string
	model     string
	tokens    string
	dataDir   string
	speakerID int
	speed     float64
}

func newSherpaSynthesizer(cfg Config) *sherpaSynthesizer {
	binary := cfg.SherpaBinary
	if binary == "" {
		binary = "sherpa-onnx-offline-tts"
	}
	speed := cfg.SherpaSpeed
	if speed <= 0 {
		speed = 1.0
	}
	return &sherpaSynthesizer{
		binary:    binary,
		modelDir:  cfg.SherpaModelDir,
		model:     cfg.SherpaModel,
		tokens:    cfg.SherpaTokens,
		dataDir:   cfg.SherpaDataDir,
		speakerID: cfg.SherpaSpeakerID,
		speed:     speed,
	}
}

func (s *sherpaSynthesizer) Name() string { return "sherpa" }

func (s *sherpaSynthesizer) resolve(name string) string {
	if name == "" || s.modelDir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.modelDir, name)
}

func (s *sherpaSynthesizer) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	dir, err := os.MkdirTemp("", "sherpa-*")
	if err != nil {
		return nil, fmt.Errorf("tts sherpa: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "clip.wav")
	args := []string{
		"--vits-model", s.resolve(s.model),
		"--vits-tokens", s.resolve(s.tokens),
		"--sid", strconv.Itoa(s.speakerID),
		"--vits-length-scale", strconv.FormatFloat(1.0/s.speed, 'f', 3, 64),
		"--output-filename", out,
	}
	if s.dataDir != "" {
		args = append(args, "--vits-data-dir", s.resolve(s.dataDir))
	}
	args = append(args, text)

	cmd := exec.CommandContext(ctx, s.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("tts sherpa: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("tts sherpa: read output: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}
	return &Audio{Data: data, Format: "wav"}, nil
}
