package visual

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Asset directory layout under the assets root:
//
//	characters/<id>/idle.png            required
//	characters/<id>/talking.png         required
//	characters/<id>/<emotion>_idle.png  optional emotion variants
//	characters/<id>/<emotion>_talking.png
//	characters/<id>/config.json         optional label + positions
//	backgrounds/<key>.png               e.g. studio_wide.png
const (
	charactersDir  = "characters"
	backgroundsDir = "backgrounds"
)

// Position places a character on the frame: X and Y are fractions of the
// frame size (bottom-center anchor), Scale multiplies the art size.
type Position struct {
	X     float64
	Y     float64
	Scale float64
}

// defaultPosition centers a character at 70% frame height, unscaled.
var defaultPosition = Position{X: 0.5, Y: 0.7, Scale: 1.0}

// artPair is the idle/talking art for one emotion.
type artPair struct {
	idle    string
	talking string
}

// Character is one loaded character rig: art per emotion and placement per
// shot type.
type Character struct {
	ID    string
	Label string

	fallback  Position
	positions map[string]Position
	states    map[string]artPair
}

// characterConfig is the optional config.json next to the art.
type characterConfig struct {
	Label     string               `json:"label"`
	PositionX *float64             `json:"position_x"`
	PositionY *float64             `json:"position_y"`
	Scale     *float64             `json:"scale"`
	Positions map[string][]float64 `json:"positions"`
}

// Library is a loaded asset bundle: the characters a script needs plus
// every discovered background, with decoded images cached so each PNG is
// read once per render.
type Library struct {
	characters  map[string]*Character
	backgrounds map[string]string

	mu     sync.Mutex
	images map[string]image.Image
}

// OpenLibrary loads the named characters and discovers backgrounds under
// the assets directory. Missing required art is an error; the render is
// better skipped than produced with holes in it.
func OpenLibrary(assetsDir string, characterIDs []string) (*Library, error) {
	lib := &Library{
		characters:  make(map[string]*Character, len(characterIDs)),
		backgrounds: make(map[string]string),
		images:      make(map[string]image.Image),
	}

	for _, id := range characterIDs {
		char, err := loadCharacter(filepath.Join(assetsDir, charactersDir, id), id)
		if err != nil {
			return nil, err
		}
		lib.characters[id] = char
	}

	bgDir := filepath.Join(assetsDir, backgroundsDir)
	entries, err := os.ReadDir(bgDir)
	if err != nil {
		return nil, fmt.Errorf("reading backgrounds dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".png") {
			continue
		}
		key := strings.TrimSuffix(name, ".png")
		lib.backgrounds[key] = filepath.Join(bgDir, name)
	}
	if len(lib.backgrounds) == 0 {
		return nil, fmt.Errorf("no background art in %s", bgDir)
	}

	return lib, nil
}

// loadCharacter reads one character directory: required default art,
// emotion variants by filename convention, optional config.
func loadCharacter(dir, id string) (*Character, error) {
	idle := filepath.Join(dir, "idle.png")
	talking := filepath.Join(dir, "talking.png")
	for _, required := range []string{idle, talking} {
		if _, err := os.Stat(required); err != nil {
			return nil, fmt.Errorf("character %s: %w", id, err)
		}
	}

	char := &Character{
		ID:        id,
		Label:     strings.ToUpper(id[:1]) + id[1:],
		fallback:  defaultPosition,
		positions: make(map[string]Position),
		states: map[string]artPair{
			"neutral": {idle: idle, talking: talking},
		},
	}

	if raw, err := os.ReadFile(filepath.Join(dir, "config.json")); err == nil {
		var cfg characterConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("character %s config: %w", id, err)
		}
		if cfg.Label != "" {
			char.Label = cfg.Label
		}
		if cfg.PositionX != nil {
			char.fallback.X = *cfg.PositionX
		}
		if cfg.PositionY != nil {
			char.fallback.Y = *cfg.PositionY
		}
		if cfg.Scale != nil {
			char.fallback.Scale = *cfg.Scale
		}
		for shot, coords := range cfg.Positions {
			if len(coords) == 3 {
				char.positions[shot] = Position{X: coords[0], Y: coords[1], Scale: coords[2]}
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("character %s: %w", id, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, "_idle.png") {
			continue
		}
		emotion := strings.TrimSuffix(name, "_idle.png")
		if emotion == "" {
			continue
		}
		pair := artPair{
			idle:    filepath.Join(dir, name),
			talking: talking,
		}
		// A missing talking variant falls back to the default talking art.
		variant := filepath.Join(dir, emotion+"_talking.png")
		if _, err := os.Stat(variant); err == nil {
			pair.talking = variant
		}
		char.states[emotion] = pair
	}

	return char, nil
}

// Character returns a loaded character, or nil when the script mentions
// someone the library was not opened with.
func (l *Library) Character(id string) *Character {
	return l.characters[id]
}

// Background resolves a backdrop key to a file path: exact key first, the
// base's wide as fallback, then any background at all.
func (l *Library) Background(key string) string {
	if path, ok := l.backgrounds[key]; ok {
		return path
	}
	if idx := strings.LastIndex(key, "_"); idx > 0 {
		if path, ok := l.backgrounds[key[:idx]+"_wide"]; ok {
			return path
		}
	}
	for _, path := range l.backgrounds {
		return path
	}
	return ""
}

// Art returns the art path for a character's emotion and mouth state. The
// lookup is total: unknown emotions fall back to neutral, so callers never
// branch on presence.
func (c *Character) Art(emotion string, talking bool) string {
	pair, ok := c.states[emotion]
	if !ok {
		pair = c.states["neutral"]
	}
	if talking {
		return pair.talking
	}
	return pair.idle
}

// PositionFor returns the character's placement in a shot type, falling
// back to its default placement.
func (c *Character) PositionFor(shot ShotType) Position {
	if pos, ok := c.positions[string(shot)]; ok {
		return pos
	}
	return c.fallback
}

// Image decodes a PNG once and caches it for the rest of the render.
func (l *Library) Image(path string) (image.Image, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if img, ok := l.images[path]; ok {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening art: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	l.images[path] = img
	return img, nil
}
