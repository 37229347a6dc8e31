package tokenstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = "authclient"
	configFileName = "session.yaml"
	fileVersion    = "1.0"
)

// FileStore keeps credentials in a YAML file readable only by the owner.
// One file may hold several profiles.
type FileStore struct {
	mu      sync.Mutex
	path    string
	profile string
}

type sessionFile struct {
	Version   string                   `yaml:"version"`
	UpdatedAt time.Time                `yaml:"updated_at"`
	Profiles  map[string]profileRecord `yaml:"profiles"`
}

type profileRecord struct {
	AccessToken string    `yaml:"access_token"`
	SavedAt     time.Time `yaml:"saved_at"`
}

// DefaultFilePath returns ~/.config/authclient/session.yaml
func DefaultFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName, configFileName), nil
}

// NewFileStore creates a file-backed store. An empty path selects DefaultFilePath.
func NewFileStore(path, profile string) (*FileStore, error) {
	if path == "" {
		p, err := DefaultFilePath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if profile == "" {
		profile = DefaultProfile
	}
	return &FileStore{path: path, profile: profile}, nil
}

// Path returns the file the store writes to
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the profile's credential
func (f *FileStore) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return "", err
	}

	rec, ok := data.Profiles[f.profile]
	if !ok || rec.AccessToken == "" {
		return "", ErrNotFound
	}
	return rec.AccessToken, nil
}

// Save writes the profile's credential, keeping other profiles intact
func (f *FileStore) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	data.Profiles[f.profile] = profileRecord{AccessToken: token, SavedAt: now}
	data.UpdatedAt = now
	return f.write(data)
}

// Delete removes the profile's credential
func (f *FileStore) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return err
	}

	if _, ok := data.Profiles[f.profile]; !ok {
		return nil
	}
	delete(data.Profiles, f.profile)
	data.UpdatedAt = time.Now().UTC()
	return f.write(data)
}

func (f *FileStore) read() (*sessionFile, error) {
	empty := &sessionFile{Version: fileVersion, Profiles: map[string]profileRecord{}}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return empty, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	if len(raw) == 0 {
		return empty, nil
	}

	var data sessionFile
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if data.Profiles == nil {
		data.Profiles = map[string]profileRecord{}
	}
	return &data, nil
}

func (f *FileStore) write(data *sessionFile) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session file: %w", err)
	}

	// Only allow read/write access to the owner
	if err := os.WriteFile(f.path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
