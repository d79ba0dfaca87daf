package metadata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/providers"
	"github.com/tofan79/autoclipper-backend/internal/security"
)

// Platforms that get per-clip metadata.
var Platforms = []string{"youtube", "tiktok", "instagram", "facebook"}

const maxHashtags = 12

// PlatformMetadata is the publishable package for one platform.
type PlatformMetadata struct {
	Title    string   `json:"title"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
	Filename string   `json:"filename"`
}

// Generator produces per-platform titles, captions, and hashtags. A
// provider is optional; without one (or when a call fails) platform
// defaults are used so metadata never fails a job.
type Generator struct {
	maxTitleChars int
	log           *logger.Logger
}

func NewGenerator(maxTitleChars int, baseLog *logger.Logger) *Generator {
	if maxTitleChars < 20 {
		maxTitleChars = 80
	}
	return &Generator{
		maxTitleChars: maxTitleChars,
		log:           baseLog.With("service", "MetadataGenerator"),
	}
}

// GenerateForPlatforms fans provider calls out per platform and
// assembles the results. Provider failures degrade to fallbacks.
func (g *Generator) GenerateForPlatforms(ctx context.Context, transcript, baseTitle string, provider providers.Provider, clipIndex int) map[string]PlatformMetadata {
	var mu sync.Mutex
	out := make(map[string]PlatformMetadata, len(Platforms))

	eg, egCtx := errgroup.WithContext(ctx)
	for _, platform := range Platforms {
		platform := platform
		eg.Go(func() error {
			meta := g.generateSingle(egCtx, platform, transcript, baseTitle, provider, clipIndex)
			mu.Lock()
			out[platform] = meta
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

func (g *Generator) generateSingle(ctx context.Context, platform, transcript, baseTitle string, provider providers.Provider, clipIndex int) PlatformMetadata {
	var payload map[string]any
	if provider != nil {
		p, err := provider.GenerateMetadata(ctx, transcript, platform)
		if err != nil {
			g.log.Warn("Metadata provider call failed, using fallbacks", "platform", platform, "error", err)
		} else {
			payload = p
		}
	}

	title := strings.TrimSpace(stringField(payload, "title"))
	if title == "" {
		title = g.fallbackTitle(baseTitle, platform)
	}
	caption := strings.TrimSpace(stringField(payload, "caption"))
	if caption == "" {
		caption = fallbackCaption(transcript, platform)
	}
	hashtags := normalizeHashtags(payload["hashtags"])
	if len(hashtags) == 0 {
		hashtags = fallbackHashtags(platform)
	}

	title = strings.TrimSpace(truncateRunes(title, g.maxTitleChars))
	if title == "" {
		title = g.fallbackTitle(baseTitle, platform)
	}

	return PlatformMetadata{
		Title:    title,
		Caption:  caption,
		Hashtags: hashtags,
		Filename: buildFilename(title, platform, clipIndex),
	}
}

func (g *Generator) fallbackTitle(baseTitle, platform string) string {
	stem := strings.TrimSpace(strings.ReplaceAll(security.SanitizeFilename(baseTitle, "clip"), "_", " "))
	return fmt.Sprintf("%s | %s", stem, strings.ToUpper(platform))
}

func fallbackCaption(transcript, platform string) string {
	trimmed := strings.Join(strings.Fields(transcript), " ")
	preview := strings.TrimSpace(truncateRunes(trimmed, 180))
	if preview == "" {
		preview = "Auto generated clip."
	}
	return fmt.Sprintf("%s\n\n#%s #autoclipper", preview, platform)
}

// truncateRunes cuts on a rune boundary so multi-byte text is never
// split mid-character.
func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func stringField(payload map[string]any, key string) string {
	value, ok := payload[key].(string)
	if !ok {
		return ""
	}
	return value
}

func normalizeHashtags(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	var clean []string
	for _, item := range items {
		token := strings.ReplaceAll(strings.TrimSpace(fmt.Sprint(item)), " ", "")
		token = strings.ReplaceAll(token, "#", "")
		if token == "" {
			continue
		}
		token = security.SanitizeFilename(token, "")
		if token == "" {
			continue
		}
		clean = append(clean, "#"+strings.ToLower(token))
		if len(clean) == maxHashtags {
			break
		}
	}
	return clean
}

func fallbackHashtags(platform string) []string {
	return []string{"#" + platform, "#shorts", "#autoclipper"}
}

func buildFilename(title, platform string, clipIndex int) string {
	safeTitle := security.SanitizeFilename(title, "clip")
	safePlatform := security.SanitizeFilename(platform, "platform")
	return fmt.Sprintf("%02d_%s_%s.mp4", clipIndex, safePlatform, safeTitle)
}
