package speech

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hermesradio/hermes/internal/config"
	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/repository"
)

const (
	defaultTTSModel = "tts-1"
	defaultTTSVoice = "nova"

	openAITimeout = 30 * time.Second
)

// OpenAI synthesizes speech through the platform TTS endpoint. It shares
// credentials with the LM client; the synthesis model is a runtime
// setting so operators can trade cost for quality live.
type OpenAI struct {
	api        openai.Client
	available  bool
	settings   repository.SettingRepository
	normalizer *Normalizer
	logger     *slog.Logger
}

// NewOpenAI creates the OpenAI TTS provider from the LM credentials.
func NewOpenAI(cfg config.LLMConfig, settings repository.SettingRepository, normalizer *Normalizer, logger *slog.Logger) *OpenAI {
	opts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Timeout: openAITimeout}),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		api:        openai.NewClient(opts...),
		available:  cfg.APIKey != "" || cfg.BaseURL != "",
		settings:   settings,
		normalizer: normalizer,
		logger:     observability.WithComponent(logger, "speech.openai"),
	}
}

// Name returns the provider name.
func (o *OpenAI) Name() string {
	return ProviderOpenAI
}

// Synthesize requests MP3 speech and normalizes the capture.
func (o *OpenAI) Synthesize(ctx context.Context, req *Request) (string, error) {
	if !o.available {
		return "", fmt.Errorf("openai credentials not configured: %w", ErrUnavailable)
	}

	model, err := o.settings.String(ctx, models.SettingOpenAITTSModel, defaultTTSModel)
	if err != nil {
		return "", fmt.Errorf("reading openai tts model setting: %w", err)
	}
	if model == "" {
		model = defaultTTSModel
	}

	voice := ""
	if req.Host != nil {
		voice = req.Host.VoiceOpenAI
	}
	if voice == "" {
		voice = defaultTTSVoice
	}

	start := time.Now()
	resp, err := o.api.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		Input:          req.Text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return "", fmt.Errorf("openai speech request: %w", err)
	}
	defer resp.Body.Close()

	rawPath := filepath.Join(req.WorkDir, req.OutputID+"_raw.mp3")
	mp3Path := filepath.Join(req.WorkDir, req.OutputID+".mp3")
	if err := writeCapture(rawPath, resp.Body); err != nil {
		return "", err
	}
	if err := o.normalizer.Normalize(ctx, rawPath, mp3Path); err != nil {
		return "", err
	}

	o.logger.Info("speech synthesized",
		slog.String("output_id", req.OutputID),
		slog.String("model", model),
		slog.String("voice", voice),
		slog.Duration("duration", time.Since(start)))
	return mp3Path, nil
}
