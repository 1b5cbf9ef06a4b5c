package service

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/provider/weather"
	"github.com/hermesradio/hermes/internal/repository"
)

// StingStationID is the asset name used when no specific sting is
// requested: the house station identification jingle.
const StingStationID = "station_id"

// Fallback is what the ladder still managed to produce once the LM or the
// speech chain gave out.
type Fallback struct {
	// Script is the rendered template text. Set on the template rung only.
	Script string

	// StingPath is the absolute path of the sting audio. Set on the sting
	// rung only.
	StingPath string

	// Level is the models.Degradation* rung settled on.
	Level int
}

// Degradation walks the fallback ladder below the LM rungs: a canned
// weather template first, then a pre-recorded sting, then nothing. The
// station keeps making sound as long as anything at all is on disk.
type Degradation struct {
	templates repository.TemplateRepository
	stingsDir string
	logger    *slog.Logger
}

// NewDegradation creates a Degradation over the template store and the
// directory holding sting audio assets.
func NewDegradation(templates repository.TemplateRepository, stingsDir string, logger *slog.Logger) *Degradation {
	return &Degradation{
		templates: templates,
		stingsDir: stingsDir,
		logger:    observability.WithComponent(logger, "degradation"),
	}
}

// Fallback returns the best rung still available. The template rung needs
// at least two cached city observations and an active template; the sting
// rung needs the asset on disk. A Level of DegradationFailed means nothing
// playable remains.
func (d *Degradation) Fallback(ctx context.Context, observations []*weather.Observation) (*Fallback, error) {
	fb, err := d.templateScript(ctx, observations)
	if err != nil {
		return nil, err
	}
	if fb != nil {
		return fb, nil
	}

	if path := d.StingPath(StingStationID); path != "" {
		d.logger.Info("sting fallback", slog.String("path", path))
		return &Fallback{StingPath: path, Level: models.DegradationSting}, nil
	}

	d.logger.Warn("no fallback available")
	return &Fallback{Level: models.DegradationFailed}, nil
}

// StingPath returns the absolute path of a named sting, or "" when the
// asset is missing.
func (d *Degradation) StingPath(name string) string {
	path := filepath.Join(d.stingsDir, name+".mp3")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// templateScript renders the template rung, choosing the least-used active
// template and substituting the two freshest observations. Returns nil
// when the rung cannot run.
func (d *Degradation) templateScript(ctx context.Context, observations []*weather.Observation) (*Fallback, error) {
	if len(observations) < 2 {
		return nil, nil
	}

	tmpl, err := d.templates.PickNext(ctx)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, nil
	}

	first, second := observations[0], observations[1]
	script := strings.NewReplacer(
		"{city1}", first.City,
		"{temp1}", spokenTemp(first.TempC),
		"{condition1}", first.Condition,
		"{city2}", second.City,
		"{temp2}", spokenTemp(second.TempC),
		"{condition2}", second.Condition,
	).Replace(tmpl.Body)

	d.logger.Info("template fallback",
		slog.String("template", tmpl.Name),
		slog.String("city1", first.City),
		slog.String("city2", second.City))

	return &Fallback{Script: script, Level: models.DegradationTemplate}, nil
}

// spokenTemp renders a temperature as a bare rounded number. Templates
// supply the unit word themselves so synthesis never has to read "°C".
func spokenTemp(tempC float64) string {
	return strconv.Itoa(int(math.Round(tempC)))
}
