package speech

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hermesradio/hermes/internal/config"
	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/util"
)

// piperTimeout bounds one synthesis run. Piper on modest hardware takes
// a few seconds per sentence; a minute means it is stuck.
const piperTimeout = 60 * time.Second

// piperBinaryEnv overrides the piper binary location.
const piperBinaryEnv = "HERMES_PIPER_BINARY"

// Piper synthesizes speech with a local piper subprocess. No network and
// no API key; this is the provider that keeps the station speaking when
// every cloud is down.
type Piper struct {
	binary       string
	modelsDir    string
	defaultModel string
	normalizer   *Normalizer
	logger       *slog.Logger
}

// NewPiper creates the local piper provider. The binary and model are
// re-resolved on every call so installing piper does not need a restart.
func NewPiper(cfg config.SpeechConfig, normalizer *Normalizer, logger *slog.Logger) *Piper {
	binary := cfg.PiperBinary
	if binary == "" {
		binary = "piper"
	}
	return &Piper{
		binary:       binary,
		modelsDir:    cfg.PiperModelsDir,
		defaultModel: cfg.PiperModel,
		normalizer:   normalizer,
		logger:       observability.WithComponent(logger, "speech.piper"),
	}
}

// Name returns the provider name.
func (p *Piper) Name() string {
	return ProviderPiper
}

// Synthesize runs piper over stdin text and normalizes the WAV it wrote.
func (p *Piper) Synthesize(ctx context.Context, req *Request) (string, error) {
	binary, err := util.FindBinary(p.binary, piperBinaryEnv)
	if err != nil {
		return "", fmt.Errorf("piper binary %q not found: %w", p.binary, ErrUnavailable)
	}
	modelPath, err := p.modelPath(req.Host)
	if err != nil {
		return "", err
	}

	wavPath := filepath.Join(req.WorkDir, req.OutputID+".wav")
	mp3Path := filepath.Join(req.WorkDir, req.OutputID+".mp3")

	start := time.Now()
	if err := p.run(ctx, binary, modelPath, wavPath, req.Text); err != nil {
		return "", err
	}
	if _, err := os.Stat(wavPath); err != nil {
		return "", fmt.Errorf("piper wrote no output file: %w", err)
	}

	if err := p.normalizer.Normalize(ctx, wavPath, mp3Path); err != nil {
		return "", err
	}

	p.logger.Info("speech synthesized",
		slog.String("output_id", req.OutputID),
		slog.String("model", filepath.Base(modelPath)),
		slog.Duration("duration", time.Since(start)))
	return mp3Path, nil
}

// run executes the piper subprocess under its own deadline.
func (p *Piper) run(ctx context.Context, binary, modelPath, wavPath, text string) error {
	ctx, cancel := context.WithTimeout(ctx, piperTimeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "--model", modelPath, "--output_file", wavPath)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("piper timed out after %v", piperTimeout)
		}
		return fmt.Errorf("piper: %w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

// modelPath resolves the voice for a host. A bare name resolves against
// the models dir; a value ending in .onnx is used as a path directly.
func (p *Piper) modelPath(host *models.Host) (string, error) {
	model := ""
	if host != nil {
		model = host.VoicePiper
	}
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		return "", fmt.Errorf("no piper voice configured: %w", ErrUnavailable)
	}

	path := model
	if !strings.HasSuffix(path, ".onnx") {
		path = filepath.Join(p.modelsDir, model+".onnx")
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("piper model %s: %w", path, ErrUnavailable)
	}
	return path, nil
}

// lastLine returns the final non-empty line of subprocess stderr, which
// is where piper puts the actual failure reason.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
