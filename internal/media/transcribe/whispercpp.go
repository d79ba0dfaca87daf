package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tofan79/autoclipper-backend/internal/apperr"
	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/media/hooks"
)

// WhisperCPP shells out to the whisper.cpp CLI with word-level
// segmentation (-ml 1) and JSON output. Expects 16 kHz mono WAV input,
// which is what the ingester produces.
type WhisperCPP struct {
	binaryPath string
	modelPath  string
	threads    int
	log        *logger.Logger

	commandTimeout time.Duration
}

func NewWhisperCPP(binaryPath, modelPath string, threads int, baseLog *logger.Logger) *WhisperCPP {
	if binaryPath == "" {
		binaryPath = "whisper-cli"
	}
	if threads < 1 {
		threads = 4
	}
	return &WhisperCPP{
		binaryPath:     binaryPath,
		modelPath:      modelPath,
		threads:        threads,
		log:            baseLog.With("service", "WhisperCPP"),
		commandTimeout: 60 * time.Minute,
	}
}

type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (w *WhisperCPP) Transcribe(ctx context.Context, audioPath string) ([]hooks.Word, error) {
	if _, err := exec.LookPath(w.binaryPath); err != nil {
		return nil, apperr.Stage(apperr.CodeTranscribeFailed,
			fmt.Errorf("whisper binary %q not found in PATH: %w", w.binaryPath, err))
	}
	if _, err := os.Stat(w.modelPath); err != nil {
		return nil, apperr.Stage(apperr.CodeTranscribeFailed,
			fmt.Errorf("whisper model missing at %s: %w", w.modelPath, err))
	}

	outPrefix := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".transcript"
	jsonPath := outPrefix + ".json"

	ctx, cancel := context.WithTimeout(ctx, w.commandTimeout)
	defer cancel()

	argv := []string{
		w.binaryPath,
		"-m", w.modelPath,
		"-f", audioPath,
		"-t", fmt.Sprintf("%d", w.threads),
		"-ml", "1",
		"-oj",
		"-of", outPrefix,
	}
	w.log.Debug("Running transcription", "argv", strings.Join(argv, " "))
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		head := string(out)
		if len(head) > 2048 {
			head = head[:2048]
		}
		return nil, apperr.Stage(apperr.CodeTranscribeFailed,
			fmt.Errorf("whisper failed: %w; out=%s", err, head))
	}

	words, err := ParseWhisperJSON(jsonPath)
	if err != nil {
		return nil, err
	}
	return words, nil
}

// ParseWhisperJSON reads whisper.cpp -oj output and flattens it into
// word timestamps. Empty tokens and sound annotations like [MUSIC]
// are dropped.
func ParseWhisperJSON(path string) ([]hooks.Word, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Stage(apperr.CodeTranscribeFailed,
			fmt.Errorf("read transcript output: %w", err))
	}
	var parsed whisperOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, apperr.Stage(apperr.CodeTranscribeFailed,
			fmt.Errorf("decode transcript output: %w", err))
	}

	var words []hooks.Word
	for _, token := range parsed.Transcription {
		text := strings.TrimSpace(token.Text)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
			continue
		}
		words = append(words, hooks.Word{
			Word:  text,
			Start: float64(token.Offsets.From) / 1000,
			End:   float64(token.Offsets.To) / 1000,
		})
	}
	return words, nil
}
