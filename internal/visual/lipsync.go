package visual

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// Lip-sync analysis constants. The mask is computed against the decoded
// line audio: one bool per video frame, true while the speaker's mouth
// should be open.
const (
	// lipsyncSampleRate is the decode rate; speech energy needs nothing
	// finer and keeps the PCM buffers small.
	lipsyncSampleRate = 16000

	// rmsThreshold is the talking cutoff as a fraction of the clip's peak
	// frame RMS.
	rmsThreshold = 0.02

	// smoothingMinRun flips runs shorter than this to match their
	// predecessor, killing single-frame mouth flutter.
	smoothingMinRun = 2
)

// PCMDecoder runs an ffmpeg decode and returns its stdout. *ffmpeg.Runner
// implements it.
type PCMDecoder interface {
	Output(ctx context.Context, args ...string) ([]byte, error)
}

// Analyzer derives talking/idle masks from audio files.
type Analyzer struct {
	decoder PCMDecoder
	fps     int
}

// NewAnalyzer creates an analyzer producing masks at the given frame rate.
func NewAnalyzer(decoder PCMDecoder, fps int) *Analyzer {
	return &Analyzer{decoder: decoder, fps: fps}
}

// Mask decodes the audio to mono 16 kHz PCM and returns one talking bool
// per video frame. An empty or too-short clip returns an empty mask.
func (a *Analyzer) Mask(ctx context.Context, audioPath string) ([]bool, error) {
	raw, err := a.decoder.Output(ctx,
		"-hide_banner", "-loglevel", "error",
		"-i", audioPath,
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(lipsyncSampleRate), "-ac", "1",
		"pipe:1",
	)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", audioPath, err)
	}
	return MaskFromPCM(raw, a.fps), nil
}

// MaskFromPCM computes the talking mask from raw s16le mono samples:
// per-frame RMS over non-overlapping windows, normalized by the clip peak,
// thresholded, then smoothed.
func MaskFromPCM(raw []byte, fps int) []bool {
	if fps <= 0 {
		return nil
	}
	samplesPerFrame := lipsyncSampleRate / fps
	if samplesPerFrame == 0 {
		return nil
	}

	sampleCount := len(raw) / 2
	frameCount := sampleCount / samplesPerFrame
	if frameCount == 0 {
		return nil
	}

	rms := make([]float64, frameCount)
	peak := 0.0
	for f := 0; f < frameCount; f++ {
		var sum float64
		base := f * samplesPerFrame * 2
		for i := 0; i < samplesPerFrame; i++ {
			s := float64(int16(binary.LittleEndian.Uint16(raw[base+i*2:])))
			sum += s * s
		}
		rms[f] = math.Sqrt(sum / float64(samplesPerFrame))
		if rms[f] > peak {
			peak = rms[f]
		}
	}

	mask := make([]bool, frameCount)
	if peak == 0 {
		return mask
	}
	for f := range rms {
		mask[f] = rms[f]/peak > rmsThreshold
	}
	return SmoothMask(mask, smoothingMinRun)
}

// SmoothMask removes runs shorter than minRun by flipping them to match
// the preceding state. The leading run is exempt; there is nothing before
// it to match.
func SmoothMask(mask []bool, minRun int) []bool {
	if len(mask) < 3 || minRun < 1 {
		return mask
	}
	out := append([]bool(nil), mask...)
	i := 0
	for i < len(out) {
		j := i + 1
		for j < len(out) && out[j] == out[i] {
			j++
		}
		if j-i < minRun && i > 0 {
			for k := i; k < j; k++ {
				out[k] = out[i-1]
			}
		}
		i = j
	}
	return out
}

// maskRun is one stretch of identical mask values.
type maskRun struct {
	talking bool
	frames  int
}

// runLengthEncode collapses the mask into (state, frame-count) runs for
// the concat demuxer script.
func runLengthEncode(mask []bool) []maskRun {
	if len(mask) == 0 {
		return nil
	}
	runs := []maskRun{{talking: mask[0], frames: 1}}
	for _, talking := range mask[1:] {
		last := &runs[len(runs)-1]
		if talking == last.talking {
			last.frames++
			continue
		}
		runs = append(runs, maskRun{talking: talking, frames: 1})
	}
	return runs
}
