package visual

// ShotType is the camera framing of one EDL segment.
type ShotType string

const (
	// ShotWide shows every character in the scene.
	ShotWide ShotType = "wide"
	// ShotCloseupLeft frames the character in the left slot.
	ShotCloseupLeft ShotType = "closeup_left"
	// ShotCloseupRight frames the character in the right slot.
	ShotCloseupRight ShotType = "closeup_right"
	// ShotTwoShot frames both characters during a rapid exchange.
	ShotTwoShot ShotType = "twoshot"
)

// Transition is how a segment enters the frame.
type Transition string

const (
	// TransitionCut switches instantly.
	TransitionCut Transition = "cut"
	// TransitionDissolve crossfades over half a second.
	TransitionDissolve Transition = "dissolve"
	// TransitionFadeBlack fades through black over half a second.
	TransitionFadeBlack Transition = "fade_black"
)

// Transition durations in milliseconds. Cuts become a single-frame fade
// when the final assembly has to go through the xfade graph anyway.
const (
	DissolveDurationMs  = 500
	FadeBlackDurationMs = 500
)

// DurationMs returns the fade length of the transition for a given frame
// rate. Cuts take one frame.
func (t Transition) DurationMs(fps int) int {
	switch t {
	case TransitionDissolve:
		return DissolveDurationMs
	case TransitionFadeBlack:
		return FadeBlackDurationMs
	default:
		return 1000 / fps
	}
}

// Segment is one shot in the edit decision list.
type Segment struct {
	// ID orders segments and names their scratch directories.
	ID int

	// Shot is the camera framing.
	Shot ShotType

	// Background is the backdrop lookup key, e.g. "studio_wide".
	Background string

	// Characters lists the character IDs visible in the shot.
	Characters []string

	// Speaker is the character talking, empty for silent shots.
	Speaker string

	// AudioPath is the line audio driving lip sync, empty for silent shots.
	AudioPath string

	// DurationMs is the shot length.
	DurationMs int

	// DialogText is the spoken line, shown on the lower third.
	DialogText string

	// TransitionIn is how this segment enters.
	TransitionIn Transition

	// Emotions maps every visible character to its emotion state for the
	// art lookup. The speaker carries the line's emotion, everyone else
	// stays neutral.
	Emotions map[string]string

	// Listener marks a reaction shot's subject.
	Listener string
}

// Silent reports whether the segment carries no speech.
func (s *Segment) Silent() bool {
	return s.AudioPath == "" || s.Speaker == ""
}

// EDL is the ordered shot plan the director produces and the compositor
// renders.
type EDL struct {
	Segments []Segment
}

// TotalDurationMs sums the planned segment durations.
func (e *EDL) TotalDurationMs() int {
	total := 0
	for i := range e.Segments {
		total += e.Segments[i].DurationMs
	}
	return total
}

// Transitions returns the per-pair transition list for final assembly:
// element i is how segment i+1 enters over segment i.
func (e *EDL) Transitions() []Transition {
	if len(e.Segments) < 2 {
		return nil
	}
	transitions := make([]Transition, 0, len(e.Segments)-1)
	for i := 1; i < len(e.Segments); i++ {
		transitions = append(transitions, e.Segments[i].TransitionIn)
	}
	return transitions
}

// AllCuts reports whether every pairwise transition is a plain cut, which
// lets the final assembly stream-copy instead of re-encoding.
func (e *EDL) AllCuts() bool {
	for _, t := range e.Transitions() {
		if t != TransitionCut {
			return false
		}
	}
	return true
}
