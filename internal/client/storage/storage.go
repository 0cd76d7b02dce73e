// Package storage persists the client session token between runs.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFile is the token file location relative to the user config dir.
const DefaultFile = "issuetracker/session.json"

// TokenFile stores a bearer token in a JSON file readable only by its
// owner. It satisfies session.TokenStore.
type TokenFile struct {
	Path string
	mu   sync.Mutex
}

type tokenDoc struct {
	Token string `json:"token"`
}

// NewTokenFile returns a store at path, or at DefaultFile under the user
// config directory when path is empty.
func NewTokenFile(path string) (*TokenFile, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		path = filepath.Join(dir, DefaultFile)
	}
	return &TokenFile{Path: path}, nil
}

// Load returns the persisted token, or "" when nothing is stored.
func (f *TokenFile) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var doc tokenDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("decode %s: %w", f.Path, err)
	}
	return doc.Token, nil
}

// Save replaces the persisted token. The file is written to a temporary
// name and renamed so a reader never sees a partial document.
func (f *TokenFile) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(tokenDoc{Token: token})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// Clear removes the persisted token. Clearing an absent file is not an error.
func (f *TokenFile) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
