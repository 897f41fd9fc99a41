package transport

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// TokenKey is the fixed key the bearer token is persisted under.
const TokenKey = "auth_token"

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	Clear() error
}

// MemoryTokenStore keeps the token in memory only.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func (m *MemoryTokenStore) Token() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryTokenStore) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) Clear() error { return m.SetToken("") }

/*
FileTokenStore keeps client-local values in a small JSON object on disk,
the token under TokenKey. Other keys in the file are preserved.
*/
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (f *FileTokenStore) Token() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	vals, err := f.read()
	if err != nil {
		return "", err
	}
	return vals[TokenKey], nil
}

func (f *FileTokenStore) SetToken(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	vals, err := f.read()
	if err != nil {
		return err
	}
	if token == "" {
		delete(vals, TokenKey)
	} else {
		vals[TokenKey] = token
	}
	return f.write(vals)
}

func (f *FileTokenStore) Clear() error { return f.SetToken("") }

func (f *FileTokenStore) read() (map[string]string, error) {
	vals := map[string]string{}
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return vals, nil
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return vals, nil
	}
	if err := json.Unmarshal(b, &vals); err != nil {
		return nil, err
	}
	return vals, nil
}

func (f *FileTokenStore) write(vals map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
