package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// maxStderrLines bounds the stderr kept in memory per run. FFmpeg's
// actual failure reason is always in the final lines.
const maxStderrLines = 40

// Runner executes batch FFmpeg commands: normalization, PCM extraction,
// and the final compose. Unlike a streaming wrapper there is no process
// to babysit; each command runs to completion under a deadline.
type Runner struct {
	ffmpegPath string
	timeout    time.Duration
}

// NewRunner creates a runner for the given ffmpeg binary.
func NewRunner(ffmpegPath string) *Runner {
	return &Runner{
		ffmpegPath: ffmpegPath,
		timeout:    5 * time.Minute,
	}
}

// WithTimeout sets the per-command timeout. Video composition gets a
// longer one than audio work.
func (r *Runner) WithTimeout(timeout time.Duration) *Runner {
	r.timeout = timeout
	return r
}

// Run executes ffmpeg with the given arguments. On failure the returned
// error carries the tail of stderr.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tail := newTailWriter(maxStderrLines)
	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)
	cmd.Stderr = tail

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffmpeg timed out after %v: %s", r.timeout, tail.Last(3))
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, tail.Last(3))
	}
	return nil
}

// Output executes ffmpeg and returns its stdout. Lip-sync analysis reads
// raw PCM samples this way.
func (r *Runner) Output(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tail := newTailWriter(maxStderrLines)
	var stdout bytes.Buffer

	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = tail

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("ffmpeg timed out after %v: %s", r.timeout, tail.Last(3))
		}
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, tail.Last(3))
	}
	return stdout.Bytes(), nil
}

// tailWriter keeps the last N lines written to it.
type tailWriter struct {
	mu      sync.Mutex
	lines   []string
	max     int
	partial []byte
}

func newTailWriter(max int) *tailWriter {
	return &tailWriter{
		lines: make([]string, 0, max),
		max:   max,
	}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.partial = append(w.partial, p...)
	for {
		idx := bytes.IndexByte(w.partial, '\n')
		if idx < 0 {
			break
		}
		w.appendLine(string(bytes.TrimRight(w.partial[:idx], "\r")))
		w.partial = w.partial[idx+1:]
	}
	return len(p), nil
}

func (w *tailWriter) appendLine(line string) {
	if line == "" {
		return
	}
	if len(w.lines) >= w.max {
		w.lines = w.lines[1:]
	}
	w.lines = append(w.lines, line)
}

// Last returns the last n captured lines joined for an error message.
func (w *tailWriter) Last(n int) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	lines := w.lines
	if len(w.partial) > 0 {
		lines = append(append([]string{}, lines...), string(w.partial))
	}
	if len(lines) == 0 {
		return "(no stderr)"
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
