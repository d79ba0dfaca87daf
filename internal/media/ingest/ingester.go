package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tofan79/autoclipper-backend/internal/apperr"
	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/media/input"
	"github.com/tofan79/autoclipper-backend/internal/types"
)

// Media is the standardized ingest output for one job: an H.264 MP4
// and a 16 kHz mono WAV the transcriber expects.
type Media struct {
	JobID           string
	SourceType      string
	WorkingDir      string
	SourceVideoPath string
	SourceAudioPath string
	Title           string
}

// Ingester downloads or normalizes job inputs into the per-job
// working directory under the downloads root.
type Ingester struct {
	downloadsRoot string
	ytdlpPath     string
	ffmpegPath    string
	log           *logger.Logger

	commandTimeout time.Duration
}

func NewIngester(downloadsRoot string, baseLog *logger.Logger) *Ingester {
	return &Ingester{
		downloadsRoot:  downloadsRoot,
		ytdlpPath:      "yt-dlp",
		ffmpegPath:     "ffmpeg",
		log:            baseLog.With("service", "VideoIngester"),
		commandTimeout: 60 * time.Minute,
	}
}

// Ingest produces source_video.mp4 and source_audio.wav in the job's
// working directory. Re-running overwrites prior output, so a resumed
// ingest stage starts clean.
func (g *Ingester) Ingest(ctx context.Context, jobID string, source *input.Source) (*Media, error) {
	if source == nil {
		return nil, apperr.Stage(apperr.CodeIngestFailed, fmt.Errorf("source required"))
	}
	jobDir := filepath.Join(g.downloadsRoot, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return nil, apperr.Stage(apperr.CodeIngestFailed, fmt.Errorf("create job dir: %w", err))
	}

	videoOut := filepath.Join(jobDir, "source_video.mp4")
	audioOut := filepath.Join(jobDir, "source_audio.wav")

	var title string
	var err error
	switch source.SourceType {
	case types.SourceTypeYouTube:
		title, err = g.ingestYouTube(ctx, source.SourceURL, jobDir, videoOut)
	case types.SourceTypeLocal:
		title, err = g.ingestLocal(ctx, source, videoOut)
	default:
		err = apperr.Stage(apperr.CodeIngestFailed, fmt.Errorf("unsupported source type: %s", source.SourceType))
	}
	if err != nil {
		return nil, err
	}

	if err := g.extractAudio(ctx, videoOut, audioOut); err != nil {
		return nil, err
	}

	return &Media{
		JobID:           jobID,
		SourceType:      source.SourceType,
		WorkingDir:      jobDir,
		SourceVideoPath: videoOut,
		SourceAudioPath: audioOut,
		Title:           title,
	}, nil
}

func (g *Ingester) ingestLocal(ctx context.Context, source *input.Source, videoOut string) (string, error) {
	src := source.SourceURL
	if strings.EqualFold(filepath.Ext(src), ".mp4") {
		if err := copyFile(src, videoOut); err != nil {
			return "", apperr.Stage(apperr.CodeIngestFailed, fmt.Errorf("copy source: %w", err))
		}
		return source.DisplayName, nil
	}
	err := g.runCommand(ctx, []string{
		g.ffmpegPath, "-y",
		"-i", src,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-c:a", "aac",
		videoOut,
	})
	if err != nil {
		return "", err
	}
	return source.DisplayName, nil
}

func (g *Ingester) ingestYouTube(ctx context.Context, youtubeURL, jobDir, videoOut string) (string, error) {
	if _, err := exec.LookPath(g.ytdlpPath); err != nil {
		return "", apperr.Stage(apperr.CodeIngestFailed, fmt.Errorf("yt-dlp not found in PATH: %w", err))
	}

	outTemplate := filepath.Join(jobDir, "yt_source.%(ext)s")
	err := g.runCommand(ctx, []string{
		g.ytdlpPath,
		"--quiet", "--no-progress",
		"-f", "bestvideo[height<=1080]+bestaudio/best",
		"--merge-output-format", "mp4",
		"-o", outTemplate,
		youtubeURL,
	})
	if err != nil {
		return "", err
	}

	downloaded, globErr := filepath.Glob(filepath.Join(jobDir, "yt_source*.mp4"))
	if globErr == nil && len(downloaded) > 0 {
		sort.Strings(downloaded)
		if err := os.Rename(downloaded[len(downloaded)-1], videoOut); err != nil {
			return "", apperr.Stage(apperr.CodeIngestFailed, fmt.Errorf("move download: %w", err))
		}
	} else {
		// downloader produced a non-mp4 container; remux it
		fallback, _ := filepath.Glob(filepath.Join(jobDir, "yt_source*"))
		if len(fallback) == 0 {
			return "", apperr.Stage(apperr.CodeIngestFailed, fmt.Errorf("yt-dlp produced no output file"))
		}
		sort.Strings(fallback)
		if err := g.runCommand(ctx, []string{g.ffmpegPath, "-y", "-i", fallback[len(fallback)-1], videoOut}); err != nil {
			return "", err
		}
	}

	title := g.probeTitle(ctx, youtubeURL)
	if title == "" {
		title = "youtube_video"
	}
	return title, nil
}

func (g *Ingester) probeTitle(ctx context.Context, youtubeURL string) string {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, g.ytdlpPath, "--quiet", "--print", "title", "--skip-download", youtubeURL).Output()
	if err != nil {
		g.log.Warn("Failed to probe video title", "error", err)
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (g *Ingester) extractAudio(ctx context.Context, videoPath, audioOut string) error {
	return g.runCommand(ctx, []string{
		g.ffmpegPath, "-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		audioOut,
	})
}

func (g *Ingester) runCommand(ctx context.Context, argv []string) error {
	ctx, cancel := context.WithTimeout(ctx, g.commandTimeout)
	defer cancel()

	g.log.Debug("Running ingest command", "argv", strings.Join(argv, " "))
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		head := string(out)
		if len(head) > 2048 {
			head = head[:2048]
		}
		return apperr.Stage(apperr.CodeIngestFailed,
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
