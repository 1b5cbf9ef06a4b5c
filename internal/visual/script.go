// Package visual turns a break script into a rendered video: it parses the
// dialog structure, plans shots, derives per-frame mouth states from the
// audio, and drives ffmpeg to composite the final MP4.
package visual

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hermesradio/hermes/internal/models"
)

// Defaults applied to underspecified scripts. The dialog writer is told the
// schema, but models drop fields often enough that every one has a default.
const (
	DefaultSceneID    = "scene_1"
	DefaultBackground = "studio"
	DefaultEmotion    = "neutral"
)

// validEmotions is the emotion whitelist from the dialog prompt. Anything
// else normalizes to neutral so the character art lookup never misses.
var validEmotions = map[string]bool{
	"neutral":   true,
	"excited":   true,
	"concerned": true,
	"surprised": true,
	"sad":       true,
	"angry":     true,
}

// Script is a parsed break script: an ordered list of scenes, each holding
// spoken lines. Monologues become a single one-character scene.
type Script struct {
	Title      string   `json:"title,omitempty"`
	Characters []string `json:"characters"`
	Scenes     []Scene  `json:"scenes"`
}

// Scene is one backdrop's worth of dialog.
type Scene struct {
	ID         string `json:"id"`
	Background string `json:"background"`
	Lines      []Line `json:"lines"`
}

// Line is one spoken line. AudioPath and DurationMs are filled in after
// synthesis from the per-line capture and its probed length; CameraHint is
// an optional writer override for the shot planner ("wide", "closeup",
// "twoshot").
type Line struct {
	Character  string `json:"character"`
	Text       string `json:"text"`
	Emotion    string `json:"emotion"`
	AudioPath  string `json:"audio_path,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
	CameraHint string `json:"camera_hint,omitempty"`
}

// Lines flattens the scenes into air order.
func (s *Script) Lines() []Line {
	var lines []Line
	for _, scene := range s.Scenes {
		lines = append(lines, scene.Lines...)
	}
	return lines
}

// ParseScript decodes dialog-writer output and normalizes it: missing scene
// IDs, backgrounds, and emotions get defaults; unknown emotions collapse to
// neutral; empty lines are dropped; characters are lowercased. A script
// with no spoken lines at all is an error.
func ParseScript(raw []byte) (*Script, error) {
	var script Script
	if err := json.Unmarshal(raw, &script); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}

	scenes := script.Scenes[:0]
	for i := range script.Scenes {
		scene := script.Scenes[i]
		if scene.ID == "" {
			scene.ID = fmt.Sprintf("scene_%d", i+1)
		}
		if scene.Background == "" {
			scene.Background = DefaultBackground
		}

		lines := scene.Lines[:0]
		for _, line := range scene.Lines {
			line.Text = strings.TrimSpace(line.Text)
			if line.Text == "" {
				continue
			}
			line.Character = strings.ToLower(strings.TrimSpace(line.Character))
			line.Emotion = strings.ToLower(strings.TrimSpace(line.Emotion))
			if !validEmotions[line.Emotion] {
				line.Emotion = DefaultEmotion
			}
			line.CameraHint = strings.ToLower(strings.TrimSpace(line.CameraHint))
			lines = append(lines, line)
		}
		scene.Lines = lines

		if len(scene.Lines) > 0 {
			scenes = append(scenes, scene)
		}
	}
	script.Scenes = scenes

	if len(script.Lines()) == 0 {
		return nil, fmt.Errorf("parsing script: no spoken lines")
	}

	if len(script.Characters) == 0 {
		seen := map[string]bool{}
		for _, line := range script.Lines() {
			if !seen[line.Character] {
				seen[line.Character] = true
				script.Characters = append(script.Characters, line.Character)
			}
		}
	}
	for i, name := range script.Characters {
		script.Characters[i] = strings.ToLower(strings.TrimSpace(name))
	}

	return &script, nil
}

// FromMonologue wraps a single-host script in the dialog structure so the
// rest of the visual pipeline has one input shape. The host's character
// fronts a single studio scene speaking the whole text as one line, timed
// to the probed audio duration.
func FromMonologue(host *models.Host, text string, durationMs int) *Script {
	character := "alex"
	if host != nil && host.Character != "" {
		character = strings.ToLower(host.Character)
	}

	return &Script{
		Characters: []string{character},
		Scenes: []Scene{{
			ID:         DefaultSceneID,
			Background: DefaultBackground,
			Lines: []Line{{
				Character:  character,
				Text:       strings.TrimSpace(text),
				Emotion:    DefaultEmotion,
				DurationMs: durationMs,
			}},
		}},
	}
}
