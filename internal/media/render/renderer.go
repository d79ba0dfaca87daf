package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tofan79/autoclipper-backend/internal/apperr"
	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/media/faces"
)

const stderrHeadBytes = 2048

// Renderer drives ffmpeg through segment render, concat, and optional
// subtitle burn. Each clip renders inside its own temp directory which
// is always removed, so a re-run starts clean.
type Renderer struct {
	builder *CommandBuilder
	log     *logger.Logger

	commandTimeout time.Duration
}

func NewRenderer(builder *CommandBuilder, baseLog *logger.Logger) *Renderer {
	if builder == nil {
		builder = NewCommandBuilder("")
	}
	return &Renderer{
		builder:        builder,
		log:            baseLog.With("service", "ClipRenderer"),
		commandTimeout: 30 * time.Minute,
	}
}

// RenderClip renders segments from sourceVideo into outputPath.
// subtitlePath may be empty to skip the burn step.
func (r *Renderer) RenderClip(ctx context.Context, sourceVideo string, segments []faces.Segment, outputPath, subtitlePath string) (string, error) {
	if len(segments) == 0 {
		return "", apperr.Stage(apperr.CodeRenderFailed, fmt.Errorf("no segments to render"))
	}
	outDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", apperr.Stage(apperr.CodeRenderFailed, fmt.Errorf("create output dir: %w", err))
	}

	tempDir := filepath.Join(outDir, ".autoclipper-render-"+strings.ReplaceAll(uuid.NewString(), "-", ""))
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", apperr.Stage(apperr.CodeRenderFailed, fmt.Errorf("create temp dir: %w", err))
	}
	defer os.RemoveAll(tempDir)

	segmentPaths, err := r.renderSegments(ctx, sourceVideo, segments, tempDir)
	if err != nil {
		return "", err
	}

	concatOutput := filepath.Join(tempDir, "concat.mp4")
	if err := r.concatSegments(ctx, segmentPaths, concatOutput, tempDir); err != nil {
		return "", err
	}

	if subtitlePath == "" {
		if err := copyFile(concatOutput, outputPath); err != nil {
			return "", apperr.Stage(apperr.CodeRenderFailed, fmt.Errorf("copy concat output: %w", err))
		}
		return outputPath, nil
	}

	if err := r.runCommand(ctx, r.builder.SubtitleBurnCommand(concatOutput, subtitlePath, outputPath)); err != nil {
		return "", err
	}
	return outputPath, nil
}

func (r *Renderer) renderSegments(ctx context.Context, sourceVideo string, segments []faces.Segment, tempDir string) ([]string, error) {
	paths := make([]string, 0, len(segments))
	for i, segment := range segments {
		target := filepath.Join(tempDir, fmt.Sprintf("segment_%03d.mp4", i))
		if err := r.runCommand(ctx, r.builder.SegmentCommand(sourceVideo, segment, target)); err != nil {
			return nil, err
		}
		paths = append(paths, target)
	}
	return paths, nil
}

func (r *Renderer) concatSegments(ctx context.Context, segmentPaths []string, outputPath, tempDir string) error {
	var manifest strings.Builder
	for _, p := range segmentPaths {
		fmt.Fprintf(&manifest, "file '%s'\n", filepath.ToSlash(p))
	}
	concatFile := filepath.Join(tempDir, "concat.txt")
	if err := os.WriteFile(concatFile, []byte(manifest.String()), 0o644); err != nil {
		return apperr.Stage(apperr.CodeRenderFailed, fmt.Errorf("write concat manifest: %w", err))
	}
	return r.runCommand(ctx, r.builder.ConcatCommand(concatFile, outputPath))
}

func (r *Renderer) runCommand(ctx context.Context, argv []string) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	r.log.Debug("Running render command", "argv", strings.Join(argv, " "))
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		head := string(out)
		if len(head) > stderrHeadBytes {
			head = head[:stderrHeadBytes]
		}
		return apperr.Stage(apperr.CodeRenderFailed,
			fmt.Errorf("%s failed: %w; out=%s", argv[0], err, head))
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
