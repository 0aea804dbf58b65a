// Package credentials stores the Fireflies API key for the ffdl CLI.
//
// The key itself lives in the system keyring:
//   - macOS: Keychain
//   - Windows: Credential Manager
//   - Linux: Secret Service (libsecret)
//
// A small non-secret metadata file (~/.ffdl/credentials.yaml) records when the
// key was saved and a short fingerprint so `ffdl auth status` can report on it
// without touching the keyring.
package credentials

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	fferrors "github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/errors"
)

// Credential storage constants.
const (
	DefaultCredentialsDir  = ".ffdl"
	DefaultCredentialsFile = "credentials.yaml"

	// EnvAPIKey is the environment variable consulted before the keyring.
	EnvAPIKey = "FIREFLIES_API_KEY"

	keyringService = "ffdl"
	keyringUser    = "api-key"
)

// Source describes where an API key was resolved from.
type Source string

const (
	SourceNone    Source = "none"
	SourceFlag    Source = "flag"
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
)

// ErrKeyringUnavailable indicates the system keyring could not be reached.
var ErrKeyringUnavailable = errors.New("system keyring unavailable")

// Metadata is the non-secret record written next to the config file.
type Metadata struct {
	KeyID       string    `yaml:"key_id"`
	Endpoint    string    `yaml:"endpoint,omitempty"`
	LastUpdated time.Time `yaml:"last_updated"`
}

// Store manages the stored API key.
type Store struct {
	credentialsDir string
}

// NewStore creates a store rooted at the default credentials directory.
func NewStore() (*Store, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return nil, fmt.Errorf("getting credentials directory: %w", err)
	}
	return &Store{credentialsDir: dir}, nil
}

// NewStoreAt creates a store whose metadata file lives in dir.
func NewStoreAt(dir string) *Store {
	return &Store{credentialsDir: dir}
}

// CredentialsDir returns the credentials directory path.
// Uses $FFDL_CONFIG_DIR if set, otherwise ~/.ffdl
func CredentialsDir() (string, error) {
	if dir := os.Getenv("FFDL_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultCredentialsDir), nil
}

// CredentialsPath returns the full path to the metadata file.
func CredentialsPath() (string, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultCredentialsFile), nil
}

func (s *Store) metadataPath() string {
	return filepath.Join(s.credentialsDir, DefaultCredentialsFile)
}

// Save stores apiKey in the keyring and records its metadata.
func (s *Store) Save(apiKey, endpoint string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("saving api key: %w", fferrors.ErrNoCredentials)
	}

	if err := keyring.Set(keyringService, keyringUser, apiKey); err != nil {
		return fmt.Errorf("%w: storing api key: %v", ErrKeyringUnavailable, err)
	}

	if err := os.MkdirAll(s.credentialsDir, 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	meta := Metadata{
		KeyID:       GenerateAPIKeyID(apiKey),
		Endpoint:    endpoint,
		LastUpdated: time.Now().UTC(),
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshaling credentials metadata: %w", err)
	}

	if err := os.WriteFile(s.metadataPath(), data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}

	return nil
}

// Load returns the API key stored in the keyring.
func (s *Store) Load() (string, error) {
	key, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fferrors.ErrNoCredentials
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return key, nil
}

// LoadMetadata reads the metadata file written by Save.
func (s *Store) LoadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(s.metadataPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fferrors.ErrNoCredentials
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	return &meta, nil
}

// Delete removes the stored key and its metadata. Missing entries are not an error.
func (s *Store) Delete() error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: deleting api key: %v", ErrKeyringUnavailable, err)
	}

	if err := os.Remove(s.metadataPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credentials file: %w", err)
	}
	return nil
}

// Exists reports whether a key is stored in the keyring.
func (s *Store) Exists() bool {
	_, err := s.Load()
	return err == nil
}

// Resolve picks the API key to use. Priority:
// 1. flagValue (--api-key)
// 2. FIREFLIES_API_KEY environment variable
// 3. the system keyring
func (s *Store) Resolve(flagValue string) (string, Source, error) {
	if key := strings.TrimSpace(flagValue); key != "" {
		return key, SourceFlag, nil
	}

	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		return key, SourceEnv, nil
	}

	key, err := s.Load()
	if err != nil {
		if errors.Is(err, fferrors.ErrNoCredentials) {
			return "", SourceNone, err
		}
		// An unreachable keyring on a headless box means no stored key.
		return "", SourceNone, fmt.Errorf("%w (%v)", fferrors.ErrNoCredentials, err)
	}
	return key, SourceKeyring, nil
}

// MaskCredential returns a masked version of the credential for display.
func MaskCredential(cred string) string {
	if len(cred) <= 8 {
		return strings.Repeat("*", len(cred))
	}
	return cred[:4] + strings.Repeat("*", len(cred)-8) + cred[len(cred)-4:]
}

// MaskAPIKey returns a fixed-width mask showing the first and last four characters.
func MaskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return strings.Repeat("*", len(apiKey))
	}
	return apiKey[:4] + "..." + apiKey[len(apiKey)-4:]
}

// GenerateAPIKeyID creates a short ID for an API key (for display purposes).
func GenerateAPIKeyID(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:4])
}
