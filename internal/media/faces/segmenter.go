package faces

import (
	"math"

	"github.com/tofan79/autoclipper-backend/internal/apperr"
)

// Render modes decided per segment.
const (
	ModePortrait      = "portrait"
	ModeLandscapeBlur = "landscape_blur"
)

// Face is one detected face in a frame, with normalized coordinates.
type Face struct {
	CenterX float64
	CenterY float64
	Area    float64
}

// FrameSample is the detector output for one sampled frame.
type FrameSample struct {
	Timestamp float64
	Faces     []Face
}

// Segment is one render instruction over the half-open range
// [Start, End).
type Segment struct {
	Start       float64
	End         float64
	Mode        string
	CropCenterX float64
	CropCenterY float64
	FaceCount   int
}

func (s Segment) duration() float64 { return s.End - s.Start }

// Config tunes the windowing and smoothing behavior.
type Config struct {
	SegmentDurationSec   float64
	MinSwitchDurationSec float64
	CropDamping          float64
}

func DefaultConfig() Config {
	return Config{
		SegmentDurationSec:   2.0,
		MinSwitchDurationSec: 1.2,
		CropDamping:          0.65,
	}
}

func (c Config) normalized() Config {
	if c.SegmentDurationSec < 0.25 {
		c.SegmentDurationSec = 0.25
	}
	if c.MinSwitchDurationSec < 0.25 {
		c.MinSwitchDurationSec = 0.25
	}
	if c.CropDamping < 0 {
		c.CropDamping = 0
	}
	if c.CropDamping > 0.95 {
		c.CropDamping = 0.95
	}
	return c
}

// Segmenter turns per-frame face samples into a stable sequence of
// portrait/landscape render decisions.
type Segmenter struct {
	cfg Config
}

func NewSegmenter(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg.normalized()}
}

// Analyze produces ordered, non-overlapping segments that partition
// [clipStart, clipEnd) exactly.
func (s *Segmenter) Analyze(samples []FrameSample, clipStart, clipEnd float64) ([]Segment, error) {
	if clipEnd <= clipStart {
		return nil, apperr.InvalidInput("invalid clip range: end %.3f <= start %.3f", clipEnd, clipStart)
	}

	raw := s.decideWindows(samples, clipStart, clipEnd)
	merged := mergeAdjacent(raw)
	merged = s.suppressFlicker(merged)
	return s.smoothCenters(merged), nil
}

func (s *Segmenter) decideWindows(samples []FrameSample, clipStart, clipEnd float64) []Segment {
	var out []Segment
	for start := clipStart; start < clipEnd; start += s.cfg.SegmentDurationSec {
		end := start + s.cfg.SegmentDurationSec
		if end > clipEnd {
			end = clipEnd
		}
		out = append(out, s.decideWindow(samples, start, end))
	}
	return out
}

func (s *Segmenter) decideWindow(samples []FrameSample, start, end float64) Segment {
	seg := Segment{
		Start:       start,
		End:         end,
		Mode:        ModeLandscapeBlur,
		CropCenterX: 0.5,
		CropCenterY: 0.5,
	}

	var (
		nonEmpty   int
		sumCount   float64
		sumArea    float64
		sumX, sumY float64
	)
	for _, sample := range samples {
		if sample.Timestamp < start || sample.Timestamp >= end {
			continue
		}
		if len(sample.Faces) == 0 {
			continue
		}
		primary := sample.Faces[0]
		for _, face := range sample.Faces[1:] {
			if face.Area > primary.Area {
				primary = face
			}
		}
		nonEmpty++
		sumCount += float64(len(sample.Faces))
		sumArea += primary.Area
		sumX += primary.CenterX
		sumY += primary.CenterY
	}
	if nonEmpty == 0 {
		return seg
	}

	avgCount := sumCount / float64(nonEmpty)
	avgArea := sumArea / float64(nonEmpty)

	switch {
	case avgCount >= 1.5:
		seg.Mode = ModeLandscapeBlur
	case avgArea >= 0.02:
		seg.Mode = ModePortrait
	default:
		seg.Mode = ModeLandscapeBlur
	}
	seg.CropCenterX = clamp01(sumX / float64(nonEmpty))
	seg.CropCenterY = clamp01(sumY / float64(nonEmpty))
	seg.FaceCount = int(math.Round(avgCount))
	return seg
}

func mergeAdjacent(segments []Segment) []Segment {
	if len(segments) == 0 {
		return segments
	}
	out := []Segment{segments[0]}
	for _, seg := range segments[1:] {
		last := &out[len(out)-1]
		if seg.Mode != last.Mode {
			out = append(out, seg)
			continue
		}
		dA := last.duration()
		dB := seg.duration()
		total := dA + dB
		last.CropCenterX = (last.CropCenterX*dA + seg.CropCenterX*dB) / total
		last.CropCenterY = (last.CropCenterY*dA + seg.CropCenterY*dB) / total
		last.FaceCount = int(math.Round((float64(last.FaceCount)*dA + float64(seg.FaceCount)*dB) / total))
		last.End = seg.End
	}
	return out
}

// suppressFlicker absorbs short interior segments sandwiched between
// two neighbors that agree on a different mode, then re-merges.
func (s *Segmenter) suppressFlicker(segments []Segment) []Segment {
	if len(segments) < 3 {
		return segments
	}
	for i := 1; i < len(segments)-1; i++ {
		cur := &segments[i]
		prev, next := segments[i-1], segments[i+1]
		if cur.duration() >= s.cfg.MinSwitchDurationSec {
			continue
		}
		if prev.Mode != next.Mode || prev.Mode == cur.Mode {
			continue
		}
		cur.Mode = prev.Mode
		cur.CropCenterX = (prev.CropCenterX + next.CropCenterX) / 2
		cur.CropCenterY = (prev.CropCenterY + next.CropCenterY) / 2
	}
	return mergeAdjacent(segments)
}

func (s *Segmenter) smoothCenters(segments []Segment) []Segment {
	if len(segments) == 0 {
		return segments
	}
	damping := s.cfg.CropDamping
	prevX := segments[0].CropCenterX
	prevY := segments[0].CropCenterY
	for i := range segments {
		seg := &segments[i]
		seg.CropCenterX = clamp01(damping*prevX + (1-damping)*seg.CropCenterX)
		seg.CropCenterY = clamp01(damping*prevY + (1-damping)*seg.CropCenterY)
		prevX, prevY = seg.CropCenterX, seg.CropCenterY
	}
	return segments
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
