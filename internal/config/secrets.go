package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
)

// SecretStore encrypts API keys with a symmetric key persisted at
// secrets/fernet.key. Ciphertext layout: base64(nonce || box).
type SecretStore struct {
	keyPath string
	key     [32]byte
}

func NewSecretStore(keyPath string) (*SecretStore, error) {
	s := &SecretStore{keyPath: keyPath}
	if err := s.loadOrCreateKey(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SecretStore) Encrypt(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

func (s *SecretStore) Decrypt(encoded string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}
	if len(raw) < 24 {
		return "", fmt.Errorf("secret ciphertext too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	opened, ok := secretbox.Open(nil, raw[24:], &nonce, &s.key)
	if !ok {
		return "", fmt.Errorf("secret decryption failed")
	}
	return string(opened), nil
}

func (s *SecretStore) loadOrCreateKey() error {
	raw, err := os.ReadFile(s.keyPath)
	if err == nil && len(raw) > 0 {
		decoded, decErr := base64.URLEncoding.DecodeString(string(trimNewline(raw)))
		if decErr == nil && len(decoded) == 32 {
			copy(s.key[:], decoded)
			return nil
		}
		// Invalid key on disk; fall through and regenerate.
	}

	var fresh [32]byte
	if _, err := rand.Read(fresh[:]); err != nil {
		return err
	}
	encoded := base64.URLEncoding.EncodeToString(fresh[:])
	if err := os.WriteFile(s.keyPath, []byte(encoded+"\n"), 0o600); err != nil {
		return fmt.Errorf("write secret key: %w", err)
	}
	s.key = fresh
	return nil
}

func trimNewline(raw []byte) []byte {
	for len(raw) > 0 && (raw[len(raw)-1] == '\n' || raw[len(raw)-1] == '\r') {
		raw = raw[:len(raw)-1]
	}
	return raw
}
