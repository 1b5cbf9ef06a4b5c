package ffmpeg

import (
	"context"
	"sync"
	"time"
)

// Encoder names for the video compose step.
const (
	EncoderV4L2 = "h264_v4l2m2m"
	EncoderX264 = "libx264"
)

// EncoderPicker selects the H.264 encoder once per process. The v4l2m2m
// device on small ARM boards advertises itself even when the kernel
// module is broken, so a real test encode is the only reliable check.
type EncoderPicker struct {
	runner *Runner

	mu      sync.Mutex
	encoder string
}

// NewEncoderPicker creates a picker that test-encodes through the runner.
func NewEncoderPicker(runner *Runner) *EncoderPicker {
	return &EncoderPicker{runner: runner}
}

// Pick returns the best available H.264 encoder, trying hardware first
// and falling back to libx264. The result is cached.
func (p *EncoderPicker) Pick(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.encoder != "" {
		return p.encoder
	}

	testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := p.runner.Run(testCtx,
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=black:s=64x64:d=0.1:r=24",
		"-c:v", EncoderV4L2,
		"-f", "null", "-",
	)
	if err == nil {
		p.encoder = EncoderV4L2
	} else {
		p.encoder = EncoderX264
	}
	return p.encoder
}

// EncoderArgs returns the encoder-specific output arguments for the
// compose step.
func EncoderArgs(encoder string) []string {
	if encoder == EncoderV4L2 {
		return []string{
			"-c:v", EncoderV4L2,
			"-b:v", "4M",
			"-pix_fmt", "yuv420p",
		}
	}
	return []string{
		"-c:v", EncoderX264,
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
	}
}
