package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// piperSynthesizer shells out to the piper neural TTS binary. Piper reads
// text on stdin and writes a wav file at the path given by --output_file.
type piperSynthesizer struct {
	binary    string
	modelPath string
}

func newPiperSynthesizer(cfg Config) *piperSynthesizer {
	binary := cfg.PiperBinary
	if binary == "" {
		binary = "piper"
	}
	return &piperSynthesizer{binary: binary, modelPath: cfg.PiperModelPath}
}

func (s *piperSynthesizer) Name() string { return "piper" }

func (s *piperSynthesizer) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	dir, err := os.MkdirTemp("", "piper-*")
	if err != nil {
		return nil, fmt.Errorf("tts piper: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "clip.wav")
	cmd := exec.CommandContext(ctx, s.binary,
		"--model", s.modelPath,
		"--output_file", out,
	)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("tts piper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("tts piper: read output: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}
	return &Audio{Data: data, Format: "wav"}, nil
}
