package subtitle

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tofan79/autoclipper-backend/internal/apperr"
	"github.com/tofan79/autoclipper-backend/internal/media/hooks"
)

// DefaultGroupSize is how many consecutive words share one dialogue
// event.
const DefaultGroupSize = 4

const assHeader = `[Script Info]
Title: AutoClipper Karaoke Subtitles
ScriptType: v4.00+
PlayResX: 1080
PlayResY: 1920
WrapStyle: 0
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Karaoke,Montserrat,96,&H00FFFFFF,&H0000D7FF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,5,2,2,60,60,320,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

// Emitter writes word-timed karaoke subtitles in ASS v4+ format.
type Emitter struct {
	groupSize int
}

func NewEmitter(groupSize int) *Emitter {
	if groupSize < 1 {
		groupSize = DefaultGroupSize
	}
	return &Emitter{groupSize: groupSize}
}

// Emit writes one dialogue event per group of consecutive words, each
// word carrying a karaoke duration tag in centiseconds.
func (e *Emitter) Emit(words []hooks.Word, outputPath string) error {
	if len(words) == 0 {
		return apperr.InvalidInput("no words to emit subtitles for")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("subtitle emit: mkdir: %w", err)
	}

	var b strings.Builder
	b.WriteString(assHeader)

	for i := 0; i < len(words); i += e.groupSize {
		end := i + e.groupSize
		if end > len(words) {
			end = len(words)
		}
		group := words[i:end]

		var text strings.Builder
		for j, w := range group {
			if j > 0 {
				text.WriteByte(' ')
			}
			text.WriteString(fmt.Sprintf(`{\k%d}%s`, karaokeCentis(w), strings.TrimSpace(w.Word)))
		}
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Karaoke,,0,0,0,,%s\n",
			formatTime(group[0].Start), formatTime(group[len(group)-1].End), text.String())
	}

	return os.WriteFile(outputPath, []byte(b.String()), 0o644)
}

func karaokeCentis(w hooks.Word) int {
	cs := int(math.Round((w.End - w.Start) * 100))
	if cs < 1 {
		cs = 1
	}
	return cs
}

// formatTime renders seconds as H:MM:SS.cs, the ASS timestamp shape.
func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalCentis := int(math.Round(seconds * 100))
	h := totalCentis / 360000
	m := (totalCentis / 6000) % 60
	s := (totalCentis / 100) % 60
	cs := totalCentis % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}
