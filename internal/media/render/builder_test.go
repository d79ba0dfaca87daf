package render

import (
	"strings"
	"testing"

	"github.com/tofan79/autoclipper-backend/internal/media/faces"
)

func argvString(argv []string) string { return strings.Join(argv, " ") }

func TestPortraitSegmentCommand(t *testing.T) {
	b := NewCommandBuilder("veryfast")
	segment := faces.Segment{
		Start: 1.5, End: 4.25, Mode: faces.ModePortrait,
		CropCenterX: 0.55, CropCenterY: 0.38,
	}
	argv := b.SegmentCommand("/videos/in.mp4", segment, "/tmp/seg.mp4")
	joined := argvString(argv)

	if argv[0] != "ffmpeg" {
		t.Fatalf("expected ffmpeg invocation, got %s", argv[0])
	}
	for _, want := range []string{
		"-ss 1.500",
		"-to 4.250",
		"crop='min(iw,ih*9/16)':'min(ih,iw*16/9)'",
		"0.550000*iw",
		"0.380000*ih",
		"scale=1080:1920",
		"-preset veryfast",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("portrait command missing %q:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "boxblur") {
		t.Fatal("portrait command should not blur")
	}
}

func TestLandscapeBlurSegmentCommand(t *testing.T) {
	b := NewCommandBuilder("fast")
	segment := faces.Segment{Start: 0, End: 2, Mode: faces.ModeLandscapeBlur}
	argv := b.SegmentCommand("/videos/in.mp4", segment, "/tmp/seg.mp4")
	joined := argvString(argv)

	for _, want := range []string{
		"boxblur=20:10[bg]",
		"force_original_aspect_ratio=decrease[fg]",
		"overlay=(W-w)/2:(H-h)/2",
		"-map [v]",
		"-map 0:a?",
		"-preset fast",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("landscape command missing %q:\n%s", want, joined)
		}
	}
}

func TestConcatCommand(t *testing.T) {
	b := NewCommandBuilder("")
	argv := b.ConcatCommand("/tmp/work/concat.txt", "/tmp/work/concat.mp4")
	joined := argvString(argv)

	for _, want := range []string{
		"-f concat",
		"-safe 0",
		"-i /tmp/work/concat.txt",
		"-c copy",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("concat command missing %q:\n%s", want, joined)
		}
	}
}

func TestSubtitleBurnEscapesPath(t *testing.T) {
	b := NewCommandBuilder("")
	argv := b.SubtitleBurnCommand("/tmp/concat.mp4", `C:\subs\words.ass`, "/out/final.mp4")
	joined := argvString(argv)

	if !strings.Contains(joined, `ass='C\:/subs/words.ass'`) {
		t.Fatalf("subtitle path not escaped:\n%s", joined)
	}
	if !strings.Contains(joined, "-c:v libx264") {
		t.Fatalf("burn should re-encode video:\n%s", joined)
	}
}
