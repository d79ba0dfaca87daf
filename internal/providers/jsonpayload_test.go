package providers

import (
	"encoding/json"
	"testing"

	"github.com/tofan79/autoclipper-backend/internal/media/hooks"
)

func TestExtractJSONPayloadStripsFences(t *testing.T) {
	raw := "```json\n[{\"start\": 1.0, \"end\": 4.0}]\n```"
	doc, err := ExtractJSONPayload(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var parsed []map[string]float64
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(parsed) != 1 || parsed[0]["start"] != 1.0 {
		t.Fatalf("unexpected payload: %v", parsed)
	}
}

func TestExtractJSONPayloadFindsArrayInProse(t *testing.T) {
	raw := `Here are your hooks: [{"start": 0, "end": 5}] hope that helps!`
	doc, err := ExtractJSONPayload(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if doc != `[{"start": 0, "end": 5}]` {
		t.Fatalf("unexpected extraction: %q", doc)
	}
}

func TestExtractJSONPayloadFallsBackToObject(t *testing.T) {
	raw := `The metadata is {"title": "Great Clip", "hashtags": ["#a"]} as requested.`
	doc, err := ExtractJSONPayload(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed["title"] != "Great Clip" {
		t.Fatalf("unexpected object: %v", parsed)
	}
}

func TestExtractJSONPayloadRejectsEmpty(t *testing.T) {
	if _, err := ExtractJSONPayload("   "); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestDecodeHooksTruncatesAndIgnoresExtraKeys(t *testing.T) {
	raw := `[
		{"start": 0, "end": 5, "semantic_score": 0.8, "emotion_score": 0.7, "confidence": 0.9, "reason": "x", "note": "ignored"},
		{"start": 5, "end": 10, "semantic_score": 0.5, "emotion_score": 0.4},
		{"start": 10, "end": 15}
	]`
	got, err := decodeHooks(raw, 2)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(got))
	}
	want := hooks.LLMHook{Start: 0, End: 5, SemanticScore: 0.8, EmotionScore: 0.7, Confidence: 0.9, Reason: "x"}
	if got[0] != want {
		t.Fatalf("first hook = %+v, want %+v", got[0], want)
	}
}

func TestDecodeMetadataBadJSON(t *testing.T) {
	if _, err := decodeMetadata("{not json"); err == nil {
		t.Fatal("expected decode error")
	}
}
