package transcribe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tofan79/autoclipper-backend/internal/apperr"
)

func TestParseWhisperJSON(t *testing.T) {
	raw := `{
		"transcription": [
			{"offsets": {"from": 0, "to": 420}, "text": " never"},
			{"offsets": {"from": 420, "to": 900}, "text": " gonna"},
			{"offsets": {"from": 900, "to": 1200}, "text": "  "},
			{"offsets": {"from": 1200, "to": 1500}, "text": " [MUSIC]"},
			{"offsets": {"from": 1500, "to": 2000}, "text": " give"}
		]
	}`
	path := filepath.Join(t.TempDir(), "audio.transcript.json")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	words, err := ParseWhisperJSON(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(words) != 3 {
		t.Fatalf("expected 3 words (blank and annotation dropped), got %d", len(words))
	}
	if words[0].Word != "never" || words[0].Start != 0 || words[0].End != 0.42 {
		t.Fatalf("unexpected first word: %+v", words[0])
	}
	if words[2].Word != "give" || words[2].Start != 1.5 {
		t.Fatalf("unexpected last word: %+v", words[2])
	}
}

func TestParseWhisperJSONErrors(t *testing.T) {
	_, err := ParseWhisperJSON(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if apperr.CodeOf(err) != apperr.CodeTranscribeFailed {
		t.Fatalf("expected transcribe_failed, got %s", apperr.CodeOf(err))
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ParseWhisperJSON(bad); err == nil {
		t.Fatal("expected error for corrupt json")
	}
}
