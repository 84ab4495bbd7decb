package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// TokenStore persists the OAuth2 token between restarts
type TokenStore interface {
	// Load returns nil without an error when nothing has been stored yet
	Load() (*oauth2.Token, error)
	Save(token *oauth2.Token) error
}

// FileTokenStore keeps the token as JSON in a file readable only by its owner
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a store backed by path
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the token file location
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load implements TokenStore
func (s *FileTokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", s.path, err)
	}
	return &token, nil
}

// Save implements TokenStore
func (s *FileTokenStore) Save(token *oauth2.Token) error {
	if token == nil {
		return errors.New("token is nil")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir token dir: %w", err)
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}
