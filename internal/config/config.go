package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tofan79/autoclipper-backend/internal/paths"
)

// Manager owns <root>/config.json. All writes go through an atomic
// temp+rename so concurrent readers never see a partial file.
type Manager struct {
	mu         sync.Mutex
	configPath string
	secrets    *SecretStore
}

func NewManager(p paths.RuntimePaths) (*Manager, error) {
	secrets, err := NewSecretStore(filepath.Join(p.SecretsDir, "fernet.key"))
	if err != nil {
		return nil, err
	}
	m := &Manager{configPath: p.ConfigPath, secrets: secrets}
	if err := m.ensureExists(p.Root); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) AsMap() (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read()
}

func (m *Manager) Get(key string) (any, bool) {
	data, err := m.AsMap()
	if err != nil {
		return nil, false
	}
	val, ok := data[key]
	return val, ok
}

// GetString returns the value for key coerced to string, or fallback.
func (m *Manager) GetString(key, fallback string) string {
	val, ok := m.Get(key)
	if !ok || val == nil {
		return fallback
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprint(val)
}

// GetInt returns the value for key coerced to int, or fallback. JSON
// numbers decode as float64, hence the coercion.
func (m *Manager) GetInt(key string, fallback int) int {
	val, ok := m.Get(key)
	if !ok || val == nil {
		return fallback
	}
	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func (m *Manager) Set(key string, value any) error {
	return m.SetMany(map[string]any{key: value})
}

func (m *Manager) SetMany(values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := m.read()
	if err != nil {
		return err
	}
	for key, value := range values {
		data[key] = value
	}
	return m.write(data)
}

// SaveEncryptedKey encrypts apiKey and stores it under ENCRYPTED_<NAME>.
func (m *Manager) SaveEncryptedKey(name, apiKey string) error {
	encrypted, err := m.secrets.Encrypt(apiKey)
	if err != nil {
		return err
	}
	return m.Set(encryptedKeyName(name), encrypted)
}

// EncryptedKey returns the stored ciphertext for name without decrypting.
func (m *Manager) EncryptedKey(name string) string {
	return m.GetString(encryptedKeyName(name), "")
}

// ResolveAPIKey decrypts the stored key for name; empty string when unset.
func (m *Manager) ResolveAPIKey(name string) (string, error) {
	encrypted := m.EncryptedKey(name)
	if encrypted == "" {
		return "", nil
	}
	return m.secrets.Decrypt(encrypted)
}

func encryptedKeyName(name string) string {
	return "ENCRYPTED_" + strings.ToUpper(strings.TrimSpace(name))
}

func (m *Manager) ensureExists(root string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		initial := make(map[string]any, len(DefaultConfig))
		for key, value := range DefaultConfig {
			initial[key] = value
		}
		initial["APP_DATA_PATH"] = root
		return m.write(initial)
	}

	// Back-fill missing keys to keep the file forward compatible.
	data, err := m.read()
	if err != nil {
		return err
	}
	changed := false
	for key, value := range DefaultConfig {
		if _, ok := data[key]; !ok {
			data[key] = value
			changed = true
		}
	}
	if appData, _ := data["APP_DATA_PATH"].(string); appData == "" {
		data["APP_DATA_PATH"] = root
		changed = true
	}
	if changed {
		return m.write(data)
	}
	return nil
}

func (m *Manager) read() (map[string]any, error) {
	raw, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return data, nil
}

func (m *Manager) write(data map[string]any) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tempPath := filepath.Join(filepath.Dir(m.configPath),
		fmt.Sprintf("config.%d.%s.tmp", os.Getpid(), uuid.NewString()))
	if err := os.WriteFile(tempPath, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write config temp: %w", err)
	}
	if err := os.Rename(tempPath, m.configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
