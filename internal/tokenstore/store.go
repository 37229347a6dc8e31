// Package tokenstore persists the access credential across process restarts.
//
// Every implementation holds exactly one entry per store instance, addressed
// by the profile the store was built for. Operations are synchronous.
package tokenstore

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when no credential has been saved
var ErrNotFound = errors.New("no stored credential")

// Store defines the persistence operations the session layer depends on.
// This allows the keyring, a file, or Redis to be swapped in tests.
type Store interface {
	Load() (string, error)
	Save(token string) error
	Delete() error
}

// Kind names a Store implementation in configuration
type Kind string

const (
	KindKeyring Kind = "keyring"
	KindFile    Kind = "file"
	KindRedis   Kind = "redis"
	KindMemory  Kind = "memory"
)

// Options selects and configures a Store
type Options struct {
	Kind           Kind
	Profile        string
	KeyringService string
	FilePath       string
	RedisAddress   string
}

// Open builds the Store named by opts.Kind
func Open(opts Options) (Store, error) {
	profile := opts.Profile
	if profile == "" {
		profile = DefaultProfile
	}

	switch opts.Kind {
	case KindKeyring, "":
		return NewKeyringStore(opts.KeyringService, profile), nil
	case KindFile:
		return NewFileStore(opts.FilePath, profile)
	case KindRedis:
		return NewRedisStore(opts.RedisAddress, profile)
	case KindMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown token store %q, must be one of: keyring, file, redis, memory", opts.Kind)
	}
}

// DefaultProfile is used when no profile is configured
const DefaultProfile = "default"
