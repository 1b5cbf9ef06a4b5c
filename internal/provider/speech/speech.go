// Package speech turns break scripts into broadcast-ready MP3 audio.
// Three providers are supported: a local piper subprocess and two cloud
// APIs. The router prefers the provider named by the
// tts_default_provider setting (or a per-request override) and walks the
// remaining providers on failure, so one dead provider never silences a
// break by itself. Every capture is loudness-normalized through ffmpeg
// before it leaves this package.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/repository"
)

// Provider names as stored in the tts_default_provider setting and in
// per-host voice fields.
const (
	ProviderPiper      = "piper"
	ProviderElevenLabs = "elevenlabs"
	ProviderOpenAI     = "openai"
)

// ErrUnavailable marks a provider that cannot run at all: missing binary,
// missing voice model, unset API key. The router walks past it the same
// as a synthesis failure.
var ErrUnavailable = errors.New("speech provider unavailable")

// Request is one synthesis job. Providers write their artifacts into
// WorkDir; the normalized MP3 is named after OutputID.
type Request struct {
	// Text is the script to speak.
	Text string

	// Host selects the per-provider voice. May be nil; providers fall
	// back to their configured defaults.
	Host *models.Host

	// OutputID names the output files, the break ID in practice.
	OutputID string

	// WorkDir receives the raw capture and the normalized MP3.
	WorkDir string

	// Provider forces a specific provider instead of the configured
	// default. Breaking breaks use this to skip a slow local synth.
	Provider string
}

// Provider synthesizes one request and returns the path to the
// normalized MP3.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, req *Request) (string, error)
}

// Router dispatches synthesis to the configured provider and falls back
// through the rest of the chain in registration order.
type Router struct {
	providers []Provider
	settings  repository.SettingRepository
	logger    *slog.Logger
}

// NewRouter creates a router over the given providers. Registration
// order is the fallback order for non-preferred providers.
func NewRouter(settings repository.SettingRepository, logger *slog.Logger, providers ...Provider) *Router {
	return &Router{
		providers: providers,
		settings:  settings,
		logger:    observability.WithComponent(logger, "speech"),
	}
}

// Synthesize walks the provider chain until one produces audio. The
// returned path is inside req.WorkDir.
func (r *Router) Synthesize(ctx context.Context, req *Request) (string, error) {
	preferred := req.Provider
	if preferred == "" {
		var err error
		preferred, err = r.settings.String(ctx, models.SettingTTSDefaultProvider, ProviderPiper)
		if err != nil {
			return "", fmt.Errorf("reading tts provider setting: %w", err)
		}
	}

	var errs []error
	for _, p := range r.chain(preferred) {
		path, err := p.Synthesize(ctx, req)
		if err != nil {
			r.logger.Warn("speech provider failed",
				slog.String("provider", p.Name()),
				slog.String("output_id", req.OutputID),
				slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if p.Name() != preferred {
			r.logger.Info("speech fell back to secondary provider",
				slog.String("preferred", preferred),
				slog.String("used", p.Name()),
				slog.String("output_id", req.OutputID))
		}
		return path, nil
	}
	return "", fmt.Errorf("all speech providers failed: %w", errors.Join(errs...))
}

// chain orders providers preferred-first, the rest in registration order.
func (r *Router) chain(preferred string) []Provider {
	ordered := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if p.Name() == preferred {
			ordered = append(ordered, p)
		}
	}
	for _, p := range r.providers {
		if p.Name() != preferred {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// writeCapture streams a provider response body to disk. A partial write
// is removed; the normalizer must never see a truncated capture.
func writeCapture(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating capture file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing capture file: %w", err)
	}
	return f.Close()
}
