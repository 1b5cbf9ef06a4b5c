package visual

import (
	"math/rand"
	"time"
)

// Shot planning constants. Durations are milliseconds.
const (
	// SceneOpenWideMs holds the establishing wide at the top of a scene.
	SceneOpenWideMs = 2000

	// wideEveryNLines inserts a breathing wide after this many lines
	// without one.
	wideEveryNLines = 4
	wideBeatMinMs   = 2000
	wideBeatMaxMs   = 4000

	// rapidExchangeMs is the previous-line length under which a speaker
	// change reads as back-and-forth and gets a two-shot.
	rapidExchangeMs = 2000

	// Reaction shots follow lines longer than reactionAfterMs in scenes
	// with a second character.
	reactionAfterMs     = 3000
	reactionProbability = 0.20
	reactionMinMs       = 1500
	reactionMaxMs       = 3000

	// Weighted transition distribution for non-opening shots.
	transitionCutWeight      = 0.85
	transitionDissolveWeight = 0.10
)

// reactionEmotions maps a speaker's emotion to the plausible listener
// reactions. Unlisted emotions read as neutral.
var reactionEmotions = map[string][]string{
	"excited":   {"surprised", "neutral", "excited"},
	"concerned": {"concerned", "neutral"},
	"angry":     {"concerned", "surprised", "neutral"},
	"surprised": {"surprised", "neutral"},
	"sad":       {"concerned", "sad", "neutral"},
}

// Director turns a timed script into an EDL. Randomness (transition
// weights, wide-beat lengths, reaction rolls) goes through the injected
// source so tests can seed it.
type Director struct {
	rng *rand.Rand
}

// NewDirector creates a director. A nil source gets a time-seeded one.
func NewDirector(rng *rand.Rand) *Director {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Director{rng: rng}
}

// Plan converts a script whose lines carry durations into an EDL. Lines
// without a duration are skipped; they have no audio to cut against.
func (d *Director) Plan(script *Script) *EDL {
	edl := &EDL{}
	segID := 0
	firstScene := true

	for _, scene := range script.Scenes {
		cast := script.Characters
		linesSinceWide := 0

		transition := TransitionCut
		if firstScene {
			transition = TransitionFadeBlack
		} else {
			transition = d.pickTransition()
		}
		edl.Segments = append(edl.Segments, Segment{
			ID:           segID,
			Shot:         ShotWide,
			Background:   backgroundKey(scene.Background, ShotWide),
			Characters:   append([]string(nil), cast...),
			DurationMs:   SceneOpenWideMs,
			TransitionIn: transition,
			Emotions:     neutralEmotions(cast),
		})
		segID++
		firstScene = false

		var prev *Line
		for i := range scene.Lines {
			line := &scene.Lines[i]
			if line.DurationMs <= 0 {
				continue
			}

			shot := d.pickShot(line, prev, cast, linesSinceWide)
			if shot == shotNeedsWideBeat {
				edl.Segments = append(edl.Segments, Segment{
					ID:           segID,
					Shot:         ShotWide,
					Background:   backgroundKey(scene.Background, ShotWide),
					Characters:   append([]string(nil), cast...),
					DurationMs:   d.randRange(wideBeatMinMs, wideBeatMaxMs),
					TransitionIn: d.pickTransition(),
					Emotions:     neutralEmotions(cast),
				})
				segID++
				linesSinceWide = 0
				shot = closeupShot(line.Character, cast)
			}

			if shot == ShotWide {
				linesSinceWide = 0
			} else {
				linesSinceWide++
			}

			emotions := neutralEmotions(cast)
			emotions[line.Character] = line.Emotion

			edl.Segments = append(edl.Segments, Segment{
				ID:           segID,
				Shot:         shot,
				Background:   backgroundKey(scene.Background, shot),
				Characters:   visibleCharacters(shot, line.Character, cast),
				Speaker:      line.Character,
				AudioPath:    line.AudioPath,
				DurationMs:   line.DurationMs,
				DialogText:   line.Text,
				TransitionIn: d.pickTransition(),
				Emotions:     emotions,
			})
			segID++

			if reaction := d.planReaction(line, scene.Background, cast, segID); reaction != nil {
				edl.Segments = append(edl.Segments, *reaction)
				segID++
				linesSinceWide++
			}

			prev = line
		}
	}

	return edl
}

// shotNeedsWideBeat is a sentinel from pickShot: insert a wide beat, then
// cut to the speaker's closeup.
const shotNeedsWideBeat = ShotType("_wide_beat")

// pickShot applies the framing rules in priority order: explicit camera
// hint, rapid exchange, overdue wide, plain closeup.
func (d *Director) pickShot(line, prev *Line, cast []string, linesSinceWide int) ShotType {
	if line.CameraHint != "" {
		switch line.CameraHint {
		case "wide":
			return ShotWide
		case "twoshot":
			return ShotTwoShot
		default:
			return closeupShot(line.Character, cast)
		}
	}
	if prev != nil && prev.Character != line.Character && prev.DurationMs <= rapidExchangeMs {
		return ShotTwoShot
	}
	if linesSinceWide >= wideEveryNLines {
		return shotNeedsWideBeat
	}
	return closeupShot(line.Character, cast)
}

// planReaction rolls for a listener cutaway after a long line. Returns nil
// when the rules or the dice say no.
func (d *Director) planReaction(line *Line, background string, cast []string, segID int) *Segment {
	if len(cast) < 2 || line.DurationMs < reactionAfterMs {
		return nil
	}
	if d.rng.Float64() >= reactionProbability {
		return nil
	}

	listener := d.pickListener(line.Character, cast)
	if listener == "" {
		return nil
	}

	shot := closeupShot(listener, cast)
	emotions := neutralEmotions(cast)
	emotions[listener] = d.pickReactionEmotion(line.Emotion)

	return &Segment{
		ID:           segID,
		Shot:         shot,
		Background:   backgroundKey(background, shot),
		Characters:   []string{listener},
		DurationMs:   d.randRange(reactionMinMs, reactionMaxMs),
		TransitionIn: TransitionCut,
		Emotions:     emotions,
		Listener:     listener,
	}
}

// pickTransition draws from the weighted distribution: cut 85%, dissolve
// 10%, fade to black 5%.
func (d *Director) pickTransition() Transition {
	r := d.rng.Float64()
	switch {
	case r < transitionCutWeight:
		return TransitionCut
	case r < transitionCutWeight+transitionDissolveWeight:
		return TransitionDissolve
	default:
		return TransitionFadeBlack
	}
}

func (d *Director) pickListener(speaker string, cast []string) string {
	others := make([]string, 0, len(cast))
	for _, c := range cast {
		if c != speaker {
			others = append(others, c)
		}
	}
	if len(others) == 0 {
		return ""
	}
	return others[d.rng.Intn(len(others))]
}

func (d *Director) pickReactionEmotion(speakerEmotion string) string {
	options, ok := reactionEmotions[speakerEmotion]
	if !ok {
		return "neutral"
	}
	return options[d.rng.Intn(len(options))]
}

// randRange returns a random duration in [min, max].
func (d *Director) randRange(min, max int) int {
	return min + d.rng.Intn(max-min+1)
}

// closeupShot assigns closeup slots by cast order: the first declared
// character owns the left of frame, the second the right.
func closeupShot(character string, cast []string) ShotType {
	if len(cast) < 2 {
		return ShotCloseupLeft
	}
	for i, c := range cast {
		if c == character {
			if i == 0 {
				return ShotCloseupLeft
			}
			return ShotCloseupRight
		}
	}
	return ShotCloseupLeft
}

// visibleCharacters lists who appears in a shot: everyone for wides and
// two-shots, just the speaker for closeups.
func visibleCharacters(shot ShotType, speaker string, cast []string) []string {
	if shot == ShotWide || shot == ShotTwoShot {
		return append([]string(nil), cast...)
	}
	return []string{speaker}
}

// backgroundKey builds the backdrop lookup key for a shot.
func backgroundKey(base string, shot ShotType) string {
	return base + "_" + string(shot)
}

func neutralEmotions(cast []string) map[string]string {
	emotions := make(map[string]string, len(cast))
	for _, c := range cast {
		emotions[c] = "neutral"
	}
	return emotions
}
