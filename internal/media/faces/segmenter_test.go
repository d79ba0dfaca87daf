package faces

import (
	"math"
	"testing"

	"github.com/tofan79/autoclipper-backend/internal/apperr"
)

func TestAnalyzeRejectsInvalidRange(t *testing.T) {
	s := NewSegmenter(DefaultConfig())
	if _, err := s.Analyze(nil, 5, 5); err == nil {
		t.Fatal("expected error for zero-length range")
	}
	_, err := s.Analyze(nil, 10, 2)
	if err == nil {
		t.Fatal("expected error for inverted range")
	}
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Fatalf("expected invalid_input, got %s", apperr.CodeOf(err))
	}
}

func TestAnalyzeCoversRangeExactly(t *testing.T) {
	s := NewSegmenter(DefaultConfig())
	segments, err := s.Analyze(nil, 0, 7.3)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(segments) == 0 {
		t.Fatal("expected segments")
	}
	if segments[0].Start != 0 {
		t.Fatalf("first segment starts at %.3f", segments[0].Start)
	}
	if segments[len(segments)-1].End != 7.3 {
		t.Fatalf("last segment ends at %.3f", segments[len(segments)-1].End)
	}
	for i := 1; i < len(segments); i++ {
		if segments[i].Start != segments[i-1].End {
			t.Fatalf("gap between segment %d and %d", i-1, i)
		}
	}
}

func TestNoFacesMeansLandscapeBlur(t *testing.T) {
	s := NewSegmenter(DefaultConfig())
	samples := []FrameSample{
		{Timestamp: 0.5},
		{Timestamp: 1.5},
	}
	segments, err := s.Analyze(samples, 0, 2)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 merged segment, got %d", len(segments))
	}
	seg := segments[0]
	if seg.Mode != ModeLandscapeBlur || seg.CropCenterX != 0.5 || seg.CropCenterY != 0.5 || seg.FaceCount != 0 {
		t.Fatalf("unexpected empty-window decision: %+v", seg)
	}
}

func TestCrowdedFramePrefersLandscapeBlur(t *testing.T) {
	s := NewSegmenter(DefaultConfig())
	face := Face{CenterX: 0.5, CenterY: 0.5, Area: 0.05}
	samples := []FrameSample{
		{Timestamp: 0.5, Faces: []Face{face, face}},
		{Timestamp: 1.0, Faces: []Face{face, face}},
	}
	segments, err := s.Analyze(samples, 0, 2)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if segments[0].Mode != ModeLandscapeBlur {
		t.Fatalf("two faces per frame should favor landscape_blur, got %s", segments[0].Mode)
	}
	if segments[0].FaceCount != 2 {
		t.Fatalf("face count = %d, want 2", segments[0].FaceCount)
	}
}

func TestSinglePortraitFacePreferred(t *testing.T) {
	// One ~8% area face near (0.55, 0.38), sampled once a second
	// across 4 s. Every segment should be portrait with smoothed
	// centers staying close to the face.
	s := NewSegmenter(DefaultConfig())
	var samples []FrameSample
	for i := 0; i < 4; i++ {
		samples = append(samples, FrameSample{
			Timestamp: float64(i) + 0.5,
			Faces:     []Face{{CenterX: 0.55, CenterY: 0.38, Area: 0.08}},
		})
	}
	segments, err := s.Analyze(samples, 0, 4)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, seg := range segments {
		if seg.Mode != ModePortrait {
			t.Fatalf("expected portrait, got %s for [%.1f,%.1f)", seg.Mode, seg.Start, seg.End)
		}
		if seg.CropCenterX < 0.4 || seg.CropCenterX > 0.7 {
			t.Fatalf("crop center x %.3f out of [0.4,0.7]", seg.CropCenterX)
		}
		if seg.CropCenterY < 0.2 || seg.CropCenterY > 0.5 {
			t.Fatalf("crop center y %.3f out of [0.2,0.5]", seg.CropCenterY)
		}
	}
}

func TestTinyFaceFallsBackToLandscape(t *testing.T) {
	s := NewSegmenter(DefaultConfig())
	samples := []FrameSample{
		{Timestamp: 0.5, Faces: []Face{{CenterX: 0.5, CenterY: 0.5, Area: 0.005}}},
	}
	segments, err := s.Analyze(samples, 0, 2)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if segments[0].Mode != ModeLandscapeBlur {
		t.Fatalf("sub-threshold face area should favor landscape_blur, got %s", segments[0].Mode)
	}
}

func TestAntiFlickerCollapsesShortInterruption(t *testing.T) {
	s := NewSegmenter(Config{
		SegmentDurationSec:   2.0,
		MinSwitchDurationSec: 1.5,
		CropDamping:          0.65,
	})
	segments := []Segment{
		{Start: 0, End: 3, Mode: ModePortrait, CropCenterX: 0.5, CropCenterY: 0.4, FaceCount: 1},
		{Start: 3, End: 3.8, Mode: ModeLandscapeBlur, CropCenterX: 0.5, CropCenterY: 0.5},
		{Start: 3.8, End: 8, Mode: ModePortrait, CropCenterX: 0.5, CropCenterY: 0.4, FaceCount: 1},
	}
	out := s.suppressFlicker(segments)
	if len(out) != 1 {
		t.Fatalf("expected one collapsed segment, got %d: %+v", len(out), out)
	}
	if out[0].Mode != ModePortrait || out[0].Start != 0 || out[0].End != 8 {
		t.Fatalf("unexpected collapsed segment: %+v", out[0])
	}
}

func TestMergeWeightsCentersByDuration(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 3, Mode: ModePortrait, CropCenterX: 0.2, CropCenterY: 0.2, FaceCount: 1},
		{Start: 3, End: 4, Mode: ModePortrait, CropCenterX: 0.6, CropCenterY: 0.6, FaceCount: 1},
	}
	out := mergeAdjacent(segments)
	if len(out) != 1 {
		t.Fatalf("expected merge, got %d segments", len(out))
	}
	wantX := (0.2*3 + 0.6*1) / 4
	if math.Abs(out[0].CropCenterX-wantX) > 1e-9 {
		t.Fatalf("weighted center x = %.4f, want %.4f", out[0].CropCenterX, wantX)
	}
}

func TestSmoothingIsDamped(t *testing.T) {
	s := NewSegmenter(Config{SegmentDurationSec: 2, MinSwitchDurationSec: 1.2, CropDamping: 0.5})
	segments := []Segment{
		{Start: 0, End: 2, Mode: ModePortrait, CropCenterX: 0.0, CropCenterY: 0.0},
		{Start: 2, End: 4, Mode: ModeLandscapeBlur, CropCenterX: 1.0, CropCenterY: 1.0},
	}
	out := s.smoothCenters(segments)
	// second segment moves halfway toward its raw center from the
	// first segment's smoothed position
	if math.Abs(out[1].CropCenterX-0.5) > 1e-9 {
		t.Fatalf("smoothed x = %.4f, want 0.5", out[1].CropCenterX)
	}
}
