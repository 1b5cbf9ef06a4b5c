package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermesradio/hermes/internal/config"
	"github.com/hermesradio/hermes/internal/models"
)

// speechServer fakes the TTS endpoint and hands the decoded request body
// to assert on.
func speechServer(t *testing.T, onRequest func(req map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/speech", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		onRequest(req)

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3openaifake"))
	}))
}

func TestOpenAI_Synthesize_Defaults(t *testing.T) {
	srv := speechServer(t, func(req map[string]any) {
		assert.Equal(t, "Good afternoon.", req["input"])
		assert.Equal(t, "tts-1", req["model"])
		assert.Equal(t, "nova", req["voice"])
		assert.Equal(t, "mp3", req["response_format"])
	})
	defer srv.Close()

	o := NewOpenAI(config.LLMConfig{BaseURL: srv.URL, APIKey: "test"}, setupSettings(t), newFakeNormalizer(&fakeRunner{}), testLogger())

	workDir := t.TempDir()
	path, err := o.Synthesize(context.Background(), &Request{
		Text:     "Good afternoon.",
		OutputID: "brk04",
		WorkDir:  workDir,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, "brk04.mp3"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID3openaifake", string(data))
	assert.NoFileExists(t, filepath.Join(workDir, "brk04_raw.mp3"))
}

func TestOpenAI_Synthesize_ModelSettingAndHostVoice(t *testing.T) {
	ctx := context.Background()

	srv := speechServer(t, func(req map[string]any) {
		assert.Equal(t, "tts-1-hd", req["model"])
		assert.Equal(t, "onyx", req["voice"])
	})
	defer srv.Close()

	settings := setupSettings(t)
	require.NoError(t, settings.Set(ctx, models.SettingOpenAITTSModel, "tts-1-hd"))

	o := NewOpenAI(config.LLMConfig{BaseURL: srv.URL, APIKey: "test"}, settings, newFakeNormalizer(&fakeRunner{}), testLogger())

	_, err := o.Synthesize(ctx, &Request{
		Text:     "Hello.",
		Host:     &models.Host{Slug: "host_breaking", Name: "Rolo", VoiceOpenAI: "onyx"},
		OutputID: "brk05",
		WorkDir:  t.TempDir(),
	})
	require.NoError(t, err)
}

func TestOpenAI_Synthesize_Unconfigured(t *testing.T) {
	o := NewOpenAI(config.LLMConfig{}, setupSettings(t), newFakeNormalizer(&fakeRunner{}), testLogger())

	_, err := o.Synthesize(context.Background(), &Request{Text: "x", OutputID: "b", WorkDir: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAI_Name(t *testing.T) {
	o := NewOpenAI(config.LLMConfig{}, setupSettings(t), newFakeNormalizer(&fakeRunner{}), testLogger())
	assert.Equal(t, ProviderOpenAI, o.Name())
}
