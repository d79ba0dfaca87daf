package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/security"
)

// Downloader fetches a model artifact to target. Kept as a callback
// so the manager stays testable and transport-agnostic.
type Downloader func(ctx context.Context, target string) error

// Manager tracks whisper model artifacts under the models root and
// verifies them by checksum before use.
type Manager struct {
	modelRoot string
	log       *logger.Logger
}

func NewManager(modelRoot string, baseLog *logger.Logger) *Manager {
	return &Manager{
		modelRoot: modelRoot,
		log:       baseLog.With("service", "ModelManager"),
	}
}

// ModelPath is pure: the canonical artifact path for a model name.
func (m *Manager) ModelPath(modelName string) string {
	safe := security.SanitizeFilename(modelName, "model")
	return filepath.Join(m.modelRoot, safe+".bin")
}

// EnsureModel returns the artifact path, downloading it when missing
// or failing verification. expectedSHA256 may be empty to skip the
// checksum comparison (size must still be nonzero).
func (m *Manager) EnsureModel(ctx context.Context, modelName, expectedSHA256 string, download Downloader) (string, error) {
	if err := os.MkdirAll(m.modelRoot, 0o755); err != nil {
		return "", fmt.Errorf("create models dir: %w", err)
	}
	target := m.ModelPath(modelName)

	if m.isValid(target, expectedSHA256) {
		return target, nil
	}
	if download == nil {
		return "", fmt.Errorf("model %q is missing or invalid and no downloader was provided", modelName)
	}

	m.log.Info("Downloading model artifact", "model", modelName, "target", target)
	if err := download(ctx, target); err != nil {
		return "", fmt.Errorf("download model %q: %w", modelName, err)
	}
	if _, err := os.Stat(target); err != nil {
		return "", fmt.Errorf("downloader did not create model file: %s", target)
	}
	if !m.isValid(target, expectedSHA256) {
		return "", fmt.Errorf("downloaded model checksum mismatch: %s", target)
	}
	return target, nil
}

func (m *Manager) isValid(path, expectedSHA256 string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return false
	}
	if expectedSHA256 == "" {
		return true
	}
	sum, err := SHA256Of(path)
	if err != nil {
		return false
	}
	return sum == strings.ToLower(strings.TrimSpace(expectedSHA256))
}

func SHA256Of(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
