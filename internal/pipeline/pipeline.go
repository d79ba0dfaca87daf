package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tofan79/autoclipper-backend/internal/apperr"
	"github.com/tofan79/autoclipper-backend/internal/jobs"
	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/media/faces"
	"github.com/tofan79/autoclipper-backend/internal/media/hooks"
	"github.com/tofan79/autoclipper-backend/internal/media/ingest"
	"github.com/tofan79/autoclipper-backend/internal/media/input"
	"github.com/tofan79/autoclipper-backend/internal/media/metadata"
	"github.com/tofan79/autoclipper-backend/internal/media/render"
	"github.com/tofan79/autoclipper-backend/internal/media/subtitle"
	"github.com/tofan79/autoclipper-backend/internal/media/transcribe"
	"github.com/tofan79/autoclipper-backend/internal/providers"
	"github.com/tofan79/autoclipper-backend/internal/repos"
	"github.com/tofan79/autoclipper-backend/internal/types"
)

// maxClipWindowSec bounds the clip length when no hook was selected.
const maxClipWindowSec = 45.0

// wordsFileName is the durable transcript artifact in the job's
// working directory; the render stage reads it so a resumed job never
// re-runs transcription.
const wordsFileName = "words.json"

// Options carries the per-deployment tuning the pipeline reads from
// configuration.
type Options struct {
	MaxClips      int
	MinViralScore int
}

// Pipeline implements the per-stage work: ingest, transcribe, render.
// Every artifact lives in the job's working directory so each stage
// can run from a cold start.
type Pipeline struct {
	normalizer  *input.Normalizer
	ingester    *ingest.Ingester
	transcriber transcribe.Transcriber
	segmenter   *faces.Segmenter
	emitter     *subtitle.Emitter
	renderer    *render.Renderer
	metadataGen *metadata.Generator
	provider    providers.Provider
	clips       repos.ClipRepo

	downloadsRoot string
	opts          Options
	log           *logger.Logger
}

func New(
	normalizer *input.Normalizer,
	ingester *ingest.Ingester,
	transcriber transcribe.Transcriber,
	segmenter *faces.Segmenter,
	emitter *subtitle.Emitter,
	renderer *render.Renderer,
	metadataGen *metadata.Generator,
	provider providers.Provider,
	clipRepo repos.ClipRepo,
	downloadsRoot string,
	opts Options,
	baseLog *logger.Logger,
) *Pipeline {
	if opts.MaxClips < 1 {
		opts.MaxClips = 10
	}
	return &Pipeline{
		normalizer:    normalizer,
		ingester:      ingester,
		transcriber:   transcriber,
		segmenter:     segmenter,
		emitter:       emitter,
		renderer:      renderer,
		metadataGen:   metadataGen,
		provider:      provider,
		clips:         clipRepo,
		downloadsRoot: downloadsRoot,
		opts:          opts,
		log:           baseLog.With("service", "ClipPipeline"),
	}
}

// RunStage dispatches to the stage implementations the controller
// drives.
func (p *Pipeline) RunStage(ctx context.Context, job *types.Job, stage jobs.Stage) error {
	switch stage.Name {
	case "ingest":
		return p.runIngest(ctx, job)
	case "transcribe":
		return p.runTranscribe(ctx, job)
	case "render":
		return p.runRender(ctx, job)
	default:
		return fmt.Errorf("unknown stage: %s", stage.Name)
	}
}

func (p *Pipeline) runIngest(ctx context.Context, job *types.Job) error {
	source, err := p.normalizer.Normalize(job.SourceURL)
	if err != nil {
		return err
	}
	media, err := p.ingester.Ingest(ctx, job.ID, source)
	if err != nil {
		return err
	}
	p.log.Info("Ingest complete", "job_id", job.ID, "title", media.Title, "video", media.SourceVideoPath)
	return nil
}

func (p *Pipeline) runTranscribe(ctx context.Context, job *types.Job) error {
	audioPath := filepath.Join(p.workingDir(job.ID), "source_audio.wav")
	words, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return apperr.Stage(apperr.CodeTranscribeFailed, fmt.Errorf("transcriber returned no words"))
	}
	if err := p.saveWords(job.ID, words); err != nil {
		return apperr.Stage(apperr.CodeTranscribeFailed, err)
	}
	p.log.Info("Transcription complete", "job_id", job.ID, "words", len(words))
	return nil
}

func (p *Pipeline) runRender(ctx context.Context, job *types.Job) error {
	workDir := p.workingDir(job.ID)
	words, err := p.loadWords(job.ID)
	if err != nil {
		return apperr.Stage(apperr.CodeRenderFailed, err)
	}

	transcript := transcriptText(words)
	windows := clipWindows(words, p.selectHooks(ctx, words, transcript))
	plannedModes := metadata.DistributeOutputModes(len(windows))
	sourceVideo := filepath.Join(workDir, "source_video.mp4")

	for i, win := range windows {
		segments, err := p.segmenter.Analyze(nil, win.start, win.end)
		if err != nil {
			return apperr.Stage(apperr.CodeRenderFailed, err)
		}
		applyPlannedMode(segments, plannedModes[i])

		clipWords := filterWords(words, win.start, win.end)
		subtitlePath := filepath.Join(workDir, fmt.Sprintf("clip_%02d.ass", i+1))
		if err := p.emitter.Emit(clipWords, subtitlePath); err != nil {
			return apperr.Stage(apperr.CodeRenderFailed, err)
		}

		clipPath := filepath.Join(workDir, fmt.Sprintf("clip_%02d.mp4", i+1))
		if _, err := p.renderer.RenderClip(ctx, sourceVideo, segments, clipPath, subtitlePath); err != nil {
			return err
		}

		platformMeta := p.metadataGen.GenerateForPlatforms(ctx, transcript, job.ID, p.provider, i+1)
		metaJSON, err := json.Marshal(platformMeta)
		if err != nil {
			metaJSON = []byte("{}")
		}

		clip := &types.Clip{
			ID:           uuid.NewString(),
			JobID:        job.ID,
			FilePath:     clipPath,
			Mode:         clipMode(segments),
			ViralScore:   win.score,
			DurationSec:  int(win.end - win.start),
			MetadataJSON: metaJSON,
		}
		if _, err := p.clips.Create(ctx, nil, clip); err != nil {
			return apperr.Stage(apperr.CodeRenderFailed, fmt.Errorf("record clip: %w", err))
		}
		p.log.Info("Render complete", "job_id", job.ID, "clip", clipPath, "viral_score", clip.ViralScore)
	}
	return nil
}

// selectHooks asks the provider for hook candidates and keeps the top
// scorers. Provider absence or failure degrades to no hooks.
func (p *Pipeline) selectHooks(ctx context.Context, words []hooks.Word, transcript string) []hooks.Candidate {
	if p.provider == nil {
		return nil
	}
	llmHooks, err := p.provider.GenerateHooks(ctx, transcript, p.opts.MaxClips)
	if err != nil {
		p.log.Warn("Hook provider call failed, using full window", "error", err)
		return nil
	}
	return hooks.Score(words, llmHooks, p.opts.MaxClips, p.opts.MinViralScore)
}

func (p *Pipeline) workingDir(jobID string) string {
	return filepath.Join(p.downloadsRoot, jobID)
}

func (p *Pipeline) saveWords(jobID string, words []hooks.Word) error {
	data, err := json.Marshal(words)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(p.workingDir(jobID), wordsFileName), data, 0o644)
}

func (p *Pipeline) loadWords(jobID string) ([]hooks.Word, error) {
	data, err := os.ReadFile(filepath.Join(p.workingDir(jobID), wordsFileName))
	if err != nil {
		return nil, fmt.Errorf("load transcript words: %w", err)
	}
	var words []hooks.Word
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("decode transcript words: %w", err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("transcript has no words")
	}
	return words, nil
}

func transcriptText(words []hooks.Word) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w.Word
	}
	return out
}

// clipWindow is one planned clip: its time range and the hook score
// that earned it.
type clipWindow struct {
	start float64
	end   float64
	score int
}

// clipWindows maps hook candidates to clip windows. With no candidate
// a single window covers the transcript span, capped in length.
func clipWindows(words []hooks.Word, candidates []hooks.Candidate) []clipWindow {
	if len(candidates) == 0 {
		start, end := words[0].Start, words[0].End
		for _, w := range words[1:] {
			if w.Start < start {
				start = w.Start
			}
			if w.End > end {
				end = w.End
			}
		}
		if end-start > maxClipWindowSec {
			end = start + maxClipWindowSec
		}
		return []clipWindow{{start: start, end: end}}
	}
	out := make([]clipWindow, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, clipWindow{start: c.Start, end: c.End, score: c.ViralScore})
	}
	return out
}

// applyPlannedMode overrides faceless segments with the batch plan.
// Segments where the detector actually saw a face keep their decision.
func applyPlannedMode(segments []faces.Segment, planned string) {
	if planned != types.ClipModePortrait {
		return
	}
	for i := range segments {
		if segments[i].FaceCount == 0 {
			segments[i].Mode = faces.ModePortrait
		}
	}
}

func filterWords(words []hooks.Word, start, end float64) []hooks.Word {
	var out []hooks.Word
	for _, w := range words {
		if w.Start >= start && w.End <= end {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return words
	}
	return out
}

func clipMode(segments []faces.Segment) string {
	for _, seg := range segments {
		if seg.Mode == faces.ModePortrait {
			return types.ClipModePortrait
		}
	}
	return types.ClipModeLandscape
}
