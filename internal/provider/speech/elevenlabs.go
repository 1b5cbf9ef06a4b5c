package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/hermesradio/hermes/internal/config"
	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/pkg/httpclient"
)

// elevenLabsModel is the synthesis model requested for every voice.
const elevenLabsModel = "eleven_monolingual_v1"

// ElevenLabs synthesizes speech through the ElevenLabs REST API. The API
// key is a runtime setting so operators can rotate it without a restart;
// an empty key makes the provider unavailable, not broken.
type ElevenLabs struct {
	client     *httpclient.Client
	settings   repository.SettingRepository
	normalizer *Normalizer
	baseURL    string
	logger     *slog.Logger
}

// NewElevenLabs creates the ElevenLabs provider.
func NewElevenLabs(cfg config.SpeechConfig, settings repository.SettingRepository, normalizer *Normalizer, logger *slog.Logger) *ElevenLabs {
	clientCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		clientCfg.Timeout = cfg.Timeout
	}
	// The router chain is the retry; a failed synth moves to the next
	// provider instead of hammering the same API.
	clientCfg.RetryAttempts = 0
	clientCfg.Logger = logger

	return &ElevenLabs{
		client:     httpclient.New(clientCfg),
		settings:   settings,
		normalizer: normalizer,
		baseURL:    strings.TrimRight(cfg.ElevenLabsBaseURL, "/"),
		logger:     observability.WithComponent(logger, "speech.elevenlabs"),
	}
}

// Name returns the provider name.
func (e *ElevenLabs) Name() string {
	return ProviderElevenLabs
}

type elevenLabsPayload struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize posts the script to the voice endpoint and normalizes the
// MP3 that comes back.
func (e *ElevenLabs) Synthesize(ctx context.Context, req *Request) (string, error) {
	apiKey, err := e.settings.String(ctx, models.SettingElevenLabsAPIKey, "")
	if err != nil {
		return "", fmt.Errorf("reading elevenlabs api key: %w", err)
	}
	if apiKey == "" {
		return "", fmt.Errorf("elevenlabs api key not set: %w", ErrUnavailable)
	}

	voice := ""
	if req.Host != nil {
		voice = req.Host.VoiceElevenLabs
	}
	if voice == "" {
		return "", fmt.Errorf("host has no elevenlabs voice: %w", ErrUnavailable)
	}

	body, err := json.Marshal(elevenLabsPayload{
		Text:    req.Text,
		ModelID: elevenLabsModel,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding elevenlabs payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", e.baseURL, url.PathEscape(voice))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building elevenlabs request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", apiKey)

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("elevenlabs returned status %d: %s", resp.StatusCode, errorSnippet(resp.Body))
	}

	rawPath := filepath.Join(req.WorkDir, req.OutputID+"_raw.mp3")
	mp3Path := filepath.Join(req.WorkDir, req.OutputID+".mp3")
	if err := writeCapture(rawPath, resp.Body); err != nil {
		return "", err
	}
	if err := e.normalizer.Normalize(ctx, rawPath, mp3Path); err != nil {
		return "", err
	}

	e.logger.Info("speech synthesized",
		slog.String("output_id", req.OutputID),
		slog.String("voice", voice),
		slog.Duration("duration", time.Since(start)))
	return mp3Path, nil
}

// errorSnippet reads the start of an error body for the log line.
func errorSnippet(r io.Reader) string {
	const maxSnippet = 200
	b, _ := io.ReadAll(io.LimitReader(r, maxSnippet))
	return strings.TrimSpace(string(b))
}
