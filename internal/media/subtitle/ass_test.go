package subtitle

import (
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/tofan79/autoclipper-backend/internal/apperr"
	"github.com/tofan79/autoclipper-backend/internal/media/hooks"
)

var (
	dialoguePattern = regexp.MustCompile(`^Dialogue: 0,([0-9:.]+),([0-9:.]+),Karaoke,,0,0,0,,(.+)$`)
	karaokePattern  = regexp.MustCompile(`\{\\k(\d+)\}([^{]+)`)
	timePattern     = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})\.(\d{2})$`)
)

func parseTime(t *testing.T, raw string) float64 {
	t.Helper()
	m := timePattern.FindStringSubmatch(raw)
	if m == nil {
		t.Fatalf("bad timestamp %q", raw)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	cs, _ := strconv.Atoi(m[4])
	return float64(h)*3600 + float64(mi)*60 + float64(s) + float64(cs)/100
}

func testWords() []hooks.Word {
	tokens := []string{"never", "gonna", "give", "you", "up", "never", "gonna"}
	var out []hooks.Word
	start := 1.0
	for _, tok := range tokens {
		out = append(out, hooks.Word{Word: tok, Start: start, End: start + 0.42})
		start += 0.5
	}
	return out
}

func TestEmitRejectsEmptyInput(t *testing.T) {
	e := NewEmitter(4)
	err := e.Emit(nil, filepath.Join(t.TempDir(), "out.ass"))
	if err == nil {
		t.Fatal("expected error for empty word list")
	}
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Fatalf("expected invalid_input, got %s", apperr.CodeOf(err))
	}
}

func TestEmitRoundTrip(t *testing.T) {
	words := testWords()
	path := filepath.Join(t.TempDir(), "out.ass")

	if err := NewEmitter(4).Emit(words, path); err != nil {
		t.Fatalf("emit: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "ScriptType: v4.00+") {
		t.Fatal("missing ASS script header")
	}
	if !strings.Contains(content, "Style: Karaoke") {
		t.Fatal("missing karaoke style")
	}

	var parsed []hooks.Word
	var groupCount int
	for _, line := range strings.Split(content, "\n") {
		m := dialoguePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		groupCount++
		eventStart := parseTime(t, m[1])
		eventEnd := parseTime(t, m[2])

		cursor := eventStart
		var last float64
		for _, km := range karaokePattern.FindAllStringSubmatch(m[3], -1) {
			cs, _ := strconv.Atoi(km[1])
			dur := float64(cs) / 100
			parsed = append(parsed, hooks.Word{
				Word:  strings.TrimSpace(km[2]),
				Start: cursor,
				End:   cursor + dur,
			})
			last = cursor + dur
			cursor += 0.5
		}
		if last > eventEnd+0.011 {
			t.Fatalf("karaoke runs past event end: %.3f > %.3f", last, eventEnd)
		}
	}

	if groupCount != 2 {
		t.Fatalf("7 words at group size 4 should emit 2 events, got %d", groupCount)
	}
	if len(parsed) != len(words) {
		t.Fatalf("parsed %d words, want %d", len(parsed), len(words))
	}
	for i, want := range words {
		got := parsed[i]
		if got.Word != want.Word {
			t.Fatalf("word %d = %q, want %q", i, got.Word, want.Word)
		}
		if math.Abs((got.End-got.Start)-(want.End-want.Start)) > 0.011 {
			t.Fatalf("word %d duration %.3f, want %.3f (±10ms)", i,
				got.End-got.Start, want.End-want.Start)
		}
	}
}

func TestEmitGroupBoundaries(t *testing.T) {
	words := testWords()
	path := filepath.Join(t.TempDir(), "out.ass")
	if err := NewEmitter(4).Emit(words, path); err != nil {
		t.Fatalf("emit: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var starts, ends []float64
	for _, line := range strings.Split(string(data), "\n") {
		m := dialoguePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		starts = append(starts, parseTime(t, m[1]))
		ends = append(ends, parseTime(t, m[2]))
	}
	if len(starts) != 2 {
		t.Fatalf("expected 2 events, got %d", len(starts))
	}
	if math.Abs(starts[0]-words[0].Start) > 0.011 {
		t.Fatalf("event 1 start %.3f, want %.3f", starts[0], words[0].Start)
	}
	if math.Abs(ends[0]-words[3].End) > 0.011 {
		t.Fatalf("event 1 end %.3f, want %.3f", ends[0], words[3].End)
	}
	if math.Abs(starts[1]-words[4].Start) > 0.011 {
		t.Fatalf("event 2 start %.3f, want %.3f", starts[1], words[4].Start)
	}
	if math.Abs(ends[1]-words[6].End) > 0.011 {
		t.Fatalf("event 2 end %.3f, want %.3f", ends[1], words[6].End)
	}
}

func TestMinimumKaraokeDuration(t *testing.T) {
	words := []hooks.Word{{Word: "blip", Start: 1.0, End: 1.001}}
	path := filepath.Join(t.TempDir(), "out.ass")
	if err := NewEmitter(4).Emit(words, path); err != nil {
		t.Fatalf("emit: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `{\k1}blip`) {
		t.Fatal("zero-length word should clamp to 1 centisecond")
	}
}
