package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// WhisperModelURL is the published artifact location for a named
// whisper.cpp model.
func WhisperModelURL(modelName string) string {
	return fmt.Sprintf("https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-%s.bin", modelName)
}

// HTTPDownloader fetches url to the target path via a temp file so a
// partial download never masquerades as a model artifact.
func HTTPDownloader(url string) Downloader {
	client := &http.Client{Timeout: 60 * time.Minute}
	return func(ctx context.Context, target string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
		}

		tmp := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".download")
		out, err := os.Create(tmp)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, resp.Body); err != nil {
			out.Close()
			os.Remove(tmp)
			return err
		}
		if err := out.Close(); err != nil {
			os.Remove(tmp)
			return err
		}
		return os.Rename(tmp, target)
	}
}
