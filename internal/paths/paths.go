package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const AppName = "AutoClipper"

// RuntimePaths is the process-wide set of filesystem roots. Resolved once
// and handed out as an immutable value.
type RuntimePaths struct {
	Root         string
	LogsDir      string
	StorageDir   string
	DownloadsDir string
	ClipsDir     string
	ModelsDir    string
	TempDir      string
	ToolsDir     string
	SecretsDir   string
	ConfigPath   string
	DatabasePath string
}

var (
	ensureOnce sync.Once
	ensured    RuntimePaths
	ensureErr  error
)

// AppDataRoot returns the runtime root without touching the filesystem.
// AUTOCLIPPER_APPDATA overrides the OS default.
func AppDataRoot() string {
	if override := os.Getenv("AUTOCLIPPER_APPDATA"); override != "" {
		return override
	}
	if runtime.GOOS == "windows" {
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			return filepath.Join(appdata, AppName)
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", AppName)
}

// Ensure resolves the runtime layout and creates every directory.
//
// The result is cached for the process lifetime; tests that change
// AUTOCLIPPER_APPDATA should call Resolve directly.
func Ensure() (RuntimePaths, error) {
	ensureOnce.Do(func() {
		ensured, ensureErr = Resolve(AppDataRoot())
	})
	return ensured, ensureErr
}

// Resolve builds the layout under root and creates all directories.
func Resolve(root string) (RuntimePaths, error) {
	storage := filepath.Join(root, "storage")
	p := RuntimePaths{
		Root:         root,
		LogsDir:      filepath.Join(root, "logs"),
		StorageDir:   storage,
		DownloadsDir: filepath.Join(storage, "downloads"),
		ClipsDir:     filepath.Join(storage, "clips"),
		ModelsDir:    filepath.Join(storage, "models"),
		TempDir:      filepath.Join(storage, "temp"),
		ToolsDir:     filepath.Join(storage, "tools"),
		SecretsDir:   filepath.Join(root, "secrets"),
		ConfigPath:   filepath.Join(root, "config.json"),
		DatabasePath: filepath.Join(root, "database.db"),
	}
	for _, dir := range []string{
		p.Root, p.LogsDir, p.StorageDir, p.DownloadsDir,
		p.ClipsDir, p.ModelsDir, p.TempDir, p.ToolsDir, p.SecretsDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return RuntimePaths{}, err
		}
	}
	return p, nil
}
