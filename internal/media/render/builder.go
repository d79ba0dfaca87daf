package render

import (
	"fmt"
	"strings"

	"github.com/tofan79/autoclipper-backend/internal/media/faces"
)

// CommandBuilder synthesizes ffmpeg argument vectors for the three
// render phases. Pure; no I/O, so command shapes are testable without
// ffmpeg installed.
type CommandBuilder struct {
	Width  int
	Height int
	Preset string
}

func NewCommandBuilder(preset string) *CommandBuilder {
	if preset == "" {
		preset = "veryfast"
	}
	return &CommandBuilder{Width: 1080, Height: 1920, Preset: preset}
}

// SegmentCommand cuts one segment out of sourceVideo, cropping around
// the tracked face for portrait mode or compositing over a blurred
// background for landscape mode.
func (b *CommandBuilder) SegmentCommand(sourceVideo string, segment faces.Segment, outputPath string) []string {
	if segment.Mode == faces.ModePortrait {
		return b.portraitCommand(sourceVideo, segment, outputPath)
	}
	return b.landscapeBlurCommand(sourceVideo, segment, outputPath)
}

func (b *CommandBuilder) portraitCommand(sourceVideo string, segment faces.Segment, outputPath string) []string {
	cropFilter := fmt.Sprintf(
		"crop='min(iw,ih*9/16)':'min(ih,iw*16/9)':"+
			"x='max(0,min(iw-ow,%.6f*iw-ow/2))':"+
			"y='max(0,min(ih-oh,%.6f*ih-oh/2))',"+
			"scale=%d:%d,setsar=1",
		segment.CropCenterX, segment.CropCenterY, b.Width, b.Height,
	)
	return []string{
		"ffmpeg", "-y",
		"-ss", fmt.Sprintf("%.3f", segment.Start),
		"-to", fmt.Sprintf("%.3f", segment.End),
		"-i", sourceVideo,
		"-vf", cropFilter,
		"-c:v", "libx264",
		"-preset", b.Preset,
		"-crf", "21",
		"-c:a", "aac",
		outputPath,
	}
}

func (b *CommandBuilder) landscapeBlurCommand(sourceVideo string, segment faces.Segment, outputPath string) []string {
	filterComplex := fmt.Sprintf(
		"[0:v]scale=%d:%d:force_original_aspect_ratio=increase,boxblur=20:10[bg];"+
			"[0:v]scale=%d:%d:force_original_aspect_ratio=decrease[fg];"+
			"[bg][fg]overlay=(W-w)/2:(H-h)/2,setsar=1[v]",
		b.Width, b.Height, b.Width, b.Height,
	)
	return []string{
		"ffmpeg", "-y",
		"-ss", fmt.Sprintf("%.3f", segment.Start),
		"-to", fmt.Sprintf("%.3f", segment.End),
		"-i", sourceVideo,
		"-filter_complex", filterComplex,
		"-map", "[v]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-preset", b.Preset,
		"-crf", "22",
		"-c:a", "aac",
		outputPath,
	}
}

// ConcatCommand stitches pre-rendered segments listed in concatFile.
func (b *CommandBuilder) ConcatCommand(concatFile, outputPath string) []string {
	return []string{
		"ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
		"-c", "copy",
		outputPath,
	}
}

// SubtitleBurnCommand re-encodes sourceVideo with the ASS subtitles
// rendered into the frame.
func (b *CommandBuilder) SubtitleBurnCommand(sourceVideo, subtitlePath, outputPath string) []string {
	subtitleExpr := strings.ReplaceAll(strings.ReplaceAll(subtitlePath, `\`, "/"), ":", `\:`)
	return []string{
		"ffmpeg", "-y",
		"-i", sourceVideo,
		"-vf", fmt.Sprintf("ass='%s'", subtitleExpr),
		"-c:v", "libx264",
		"-preset", b.Preset,
		"-c:a", "aac",
		outputPath,
	}
}
