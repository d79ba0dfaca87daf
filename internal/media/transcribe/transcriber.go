package transcribe

import (
	"context"

	"github.com/tofan79/autoclipper-backend/internal/media/hooks"
)

// Transcriber turns an audio file into word-level timestamps. The
// pipeline depends only on this interface; tests substitute a stub.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]hooks.Word, error)
}
