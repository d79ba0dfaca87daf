package input

import (
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tofan79/autoclipper-backend/internal/apperr"
	"github.com/tofan79/autoclipper-backend/internal/security"
	"github.com/tofan79/autoclipper-backend/internal/types"
)

// DefaultMaxLocalFileBytes caps accepted local uploads at 25 GiB.
const DefaultMaxLocalFileBytes = int64(25) << 30

var youtubeHosts = map[string]struct{}{
	"youtube.com":       {},
	"www.youtube.com":   {},
	"m.youtube.com":     {},
	"music.youtube.com": {},
	"youtu.be":          {},
}

var allowedExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
	".m4v":  {},
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

// Source is the validated, canonical form of a raw job input.
type Source struct {
	SourceType  string
	SourceURL   string
	DisplayName string
	VideoID     string
}

// Normalizer validates raw inputs into typed sources.
type Normalizer struct {
	maxLocalFileBytes int64
}

func NewNormalizer(maxLocalFileBytes int64) *Normalizer {
	if maxLocalFileBytes <= 0 {
		maxLocalFileBytes = DefaultMaxLocalFileBytes
	}
	return &Normalizer{maxLocalFileBytes: maxLocalFileBytes}
}

// Normalize classifies raw as a YouTube URL or a local file path and
// validates accordingly. Every violated precondition surfaces as an
// invalid_input error.
func (n *Normalizer) Normalize(raw string) (*Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.InvalidInput("source is empty")
	}

	if parsed, err := url.Parse(raw); err == nil &&
		(parsed.Scheme == "http" || parsed.Scheme == "https") {
		return n.normalizeYouTube(parsed)
	}
	return n.normalizeLocal(raw)
}

func (n *Normalizer) normalizeYouTube(parsed *url.URL) (*Source, error) {
	host := strings.ToLower(parsed.Hostname())
	if _, ok := youtubeHosts[host]; !ok {
		return nil, apperr.InvalidInput("unsupported video host: %s", host)
	}

	var videoID string
	if host == "youtu.be" {
		videoID = strings.Trim(parsed.Path, "/")
		if i := strings.IndexByte(videoID, '/'); i >= 0 {
			videoID = videoID[:i]
		}
	} else {
		videoID = parsed.Query().Get("v")
		if videoID == "" && strings.HasPrefix(parsed.Path, "/shorts/") {
			videoID = strings.Trim(strings.TrimPrefix(parsed.Path, "/shorts/"), "/")
		}
	}
	if !videoIDPattern.MatchString(videoID) {
		return nil, apperr.InvalidInput("could not extract a valid video id from URL")
	}

	return &Source{
		SourceType:  types.SourceTypeYouTube,
		SourceURL:   "https://www.youtube.com/watch?v=" + videoID,
		DisplayName: videoID,
		VideoID:     videoID,
	}, nil
}

func (n *Normalizer) normalizeLocal(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperr.InvalidInput("file not found: %s", path)
	}
	if !info.Mode().IsRegular() {
		return nil, apperr.InvalidInput("not a regular file: %s", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, apperr.InvalidInput("unsupported media extension: %s", ext)
	}
	if info.Size() == 0 {
		return nil, apperr.InvalidInput("file is empty")
	}
	if info.Size() > n.maxLocalFileBytes {
		return nil, apperr.InvalidInput("file exceeds size limit (%d bytes)", n.maxLocalFileBytes)
	}

	display := security.SanitizeFilename(strings.TrimSuffix(filepath.Base(path), ext), "video")
	return &Source{
		SourceType:  types.SourceTypeLocal,
		SourceURL:   path,
		DisplayName: display,
	}, nil
}
