package speech

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hermesradio/hermes/internal/ffmpeg"
)

// loudnormFilter is the broadcast loudness target. Every provider's
// output passes through it so breaks sit at the same level as the music
// bed regardless of which synth produced them.
const loudnormFilter = "loudnorm=I=-16:TP=-1.5:LRA=11"

// normalizeTimeout bounds one normalization run. Break audio is a minute
// at most; anything slower than this is a wedged ffmpeg.
const normalizeTimeout = 30 * time.Second

// audioRunner runs one ffmpeg command to completion.
type audioRunner interface {
	Run(ctx context.Context, args ...string) error
}

// Normalizer converts raw provider captures into normalized MP3s.
type Normalizer struct {
	runner audioRunner
}

// NewNormalizer creates a normalizer using the given ffmpeg binary.
func NewNormalizer(ffmpegPath string) *Normalizer {
	return &Normalizer{
		runner: ffmpeg.NewRunner(ffmpegPath).WithTimeout(normalizeTimeout),
	}
}

// Normalize transcodes rawPath into a normalized MP3 at outPath and
// removes the raw capture on success. On failure the raw file is left
// for the pipeline's temp dir cleanup.
func (n *Normalizer) Normalize(ctx context.Context, rawPath, outPath string) error {
	if err := n.runner.Run(ctx, normalizeArgs(rawPath, outPath)...); err != nil {
		return fmt.Errorf("normalizing audio: %w", err)
	}
	os.Remove(rawPath)
	return nil
}

func normalizeArgs(rawPath, outPath string) []string {
	return []string{
		"-y",
		"-i", rawPath,
		"-af", loudnormFilter,
		"-ar", "44100",
		"-ac", "2",
		"-c:a", "libmp3lame",
		"-b:a", "192k",
		outPath,
	}
}
