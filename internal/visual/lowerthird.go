package visual

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Lower-third layout. Coordinates are pixels on the 1920x1080 frame; the
// name bar sits above the headline bar, both anchored bottom-left.
const (
	ltMarginLeft       = 80
	ltMarginBottom     = 100
	ltBarHeight        = 70
	ltNameBarWidth     = 350
	ltHeadlineBarWidth = 900
	ltHeadlineBarH     = 45
	ltBarRadius        = 8
	ltAccentWidth      = 6
	ltTextInset        = 20
	ltHeadlineGap      = 8
	ltNameFontSize     = 30
	ltHeadlineFontSize = 22
	ltHeadlineMaxRunes = 60
)

var (
	ltBarColor      = color.NRGBA{R: 20, G: 20, B: 40, A: 200}
	ltAccentColor   = color.NRGBA{R: 220, G: 50, B: 50, A: 255}
	ltNameColor     = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	ltHeadlineColor = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
)

// Font candidates, tried in order. Systems without them render with the
// builtin bitmap face, which is legible if plain.
var (
	ltBoldFontPaths = []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
		"/usr/share/fonts/truetype/freefont/FreeSansBold.ttf",
	}
	ltRegularFontPaths = []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/freefont/FreeSans.ttf",
	}
)

// LowerThird draws the speaker name tag and headline bar onto composed
// frames. Faces are loaded once and shared across segments.
type LowerThird struct {
	nameFace     font.Face
	headlineFace font.Face
}

// NewLowerThird loads the overlay fonts.
func NewLowerThird() *LowerThird {
	return &LowerThird{
		nameFace:     loadFace(ltBoldFontPaths, ltNameFontSize),
		headlineFace: loadFace(ltRegularFontPaths, ltHeadlineFontSize),
	}
}

// loadFace tries the candidate TTF paths at the given size, falling back
// to the builtin face.
func loadFace(candidates []string, size float64) font.Face {
	for _, path := range candidates {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		parsed, err := opentype.Parse(raw)
		if err != nil {
			continue
		}
		face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			continue
		}
		return face
	}
	return basicfont.Face7x13
}

// Draw overlays the lower third onto the frame: an accent stripe and
// rounded name tag when a speaker is named, a headline bar below it when
// there is dialog text. Empty inputs draw nothing.
func (lt *LowerThird) Draw(frame *image.RGBA, speakerName, headline string) {
	if speakerName == "" && headline == "" {
		return
	}

	bounds := frame.Bounds()
	yBase := bounds.Dy() - ltMarginBottom - ltBarHeight

	if speakerName != "" {
		lt.drawNameBar(frame, speakerName, yBase)
	}
	if headline != "" {
		lt.drawHeadlineBar(frame, headline, yBase+ltBarHeight+ltHeadlineGap)
	}
}

func (lt *LowerThird) drawNameBar(frame *image.RGBA, name string, y int) {
	x := ltMarginLeft
	fillRect(frame, image.Rect(x, y, x+ltAccentWidth, y+ltBarHeight), ltAccentColor)
	fillRoundedRect(frame, image.Rect(x+ltAccentWidth, y, x+ltNameBarWidth, y+ltBarHeight), ltBarRadius, ltBarColor)

	textY := y + (ltBarHeight+ltNameFontSize)/2 - 4
	drawText(frame, lt.nameFace, strings.ToUpper(name), x+ltAccentWidth+ltTextInset, textY, ltNameColor)
}

func (lt *LowerThird) drawHeadlineBar(frame *image.RGBA, text string, y int) {
	x := ltMarginLeft
	fillRoundedRect(frame, image.Rect(x, y, x+ltHeadlineBarWidth, y+ltHeadlineBarH), ltBarRadius, ltBarColor)

	textY := y + (ltHeadlineBarH+ltHeadlineFontSize)/2 - 4
	drawText(frame, lt.headlineFace, truncateRunes(text, ltHeadlineMaxRunes), x+ltTextInset, textY, ltHeadlineColor)
}

// truncateRunes shortens overlong headlines with an ellipsis.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// fillRect alpha-composites a solid rectangle onto the frame.
func fillRect(dst *image.RGBA, r image.Rectangle, c color.NRGBA) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

// fillRoundedRect composites a rectangle with quarter-circle corners.
func fillRoundedRect(dst *image.RGBA, r image.Rectangle, radius int, c color.NRGBA) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if insideRounded(x, y, r, radius) {
				draw.Draw(dst, image.Rect(x, y, x+1, y+1), src, image.Point{}, draw.Over)
			}
		}
	}
}

// insideRounded reports whether a pixel is inside the rounded rectangle.
func insideRounded(x, y int, r image.Rectangle, radius int) bool {
	cx, cy := 0, 0
	switch {
	case x < r.Min.X+radius && y < r.Min.Y+radius:
		cx, cy = r.Min.X+radius, r.Min.Y+radius
	case x >= r.Max.X-radius && y < r.Min.Y+radius:
		cx, cy = r.Max.X-radius, r.Min.Y+radius
	case x < r.Min.X+radius && y >= r.Max.Y-radius:
		cx, cy = r.Min.X+radius, r.Max.Y-radius
	case x >= r.Max.X-radius && y >= r.Max.Y-radius:
		cx, cy = r.Max.X-radius, r.Max.Y-radius
	default:
		return true
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= radius*radius
}

// drawText renders a string with its baseline at (x, y).
func drawText(dst *image.RGBA, face font.Face, text string, x, y int, c color.NRGBA) {
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}
