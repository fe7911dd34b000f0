// Package credentials implements the encrypted repo-auth store (spec §3/§4,
// C4): RepoAuth records, the CredentialsFile round-trip, and the service id
// derivation used to name every artifact a repository produces.
package credentials

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/ferrors"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/serviceid"
)

// RepoAuth is one repository's sync credentials (spec §3).
type RepoAuth struct {
	User   string `json:"user"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Token  string `json:"token"`
}

// ServiceID returns the 8-hex-digit identity derived from user/repo/branch.
func (a RepoAuth) ServiceID() string {
	return serviceid.FromRepo(a.User, a.Repo, a.Branch)
}

// document is the plaintext JSON shape at rest (spec §6).
type document struct {
	AuthItems []RepoAuth `json:"auth_items"`
}

// Oracle is the black-box Encrypt/Decrypt service (spec §1), reached over its
// own local stream socket; this package treats it purely as an interface.
type Oracle interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// Store loads and saves the encrypted credentials file at path.
type Store struct {
	path   string
	oracle Oracle
}

// New constructs a Store bound to the well-known credentials path.
func New(path string, oracle Oracle) *Store {
	return &Store{path: path, oracle: oracle}
}

// Load decrypts and parses the credentials file into an ordered RepoAuth list.
// A missing file is reported via KindCredentialsUnreadable, same as a decrypt
// or parse failure, so every caller uses the same startup-fatal check.
func (s *Store) Load(ctx context.Context) ([]RepoAuth, error) {
	ciphertext, err := os.ReadFile(s.path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindCredentialsUnreadable, "read credentials file", err)
	}

	plaintext, err := s.oracle.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindCredentialsUnreadable, "decrypt credentials file", err)
	}

	// The plaintext must not contain literal newlines (spec §6); strip any
	// that snuck in regardless of how they got there.
	stripped := strings.ReplaceAll(string(plaintext), "\n", "")

	var doc document
	if err := json.Unmarshal([]byte(stripped), &doc); err != nil {
		return nil, ferrors.Wrap(ferrors.KindCredentialsUnreadable, "parse credentials document", err)
	}
	return doc.AuthItems, nil
}

// Save serializes items, encrypts them, and atomically replaces the
// credentials file. The core never calls this except the management gateway
// (C12) acting on an operator's UPDATEGITREPO request (spec §4.7).
func (s *Store) Save(ctx context.Context, items []RepoAuth) error {
	doc := document{AuthItems: items}
	plaintext, err := json.Marshal(doc)
	if err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "marshal credentials document", err)
	}
	// json.Marshal never emits literal newlines for this shape, but strip
	// defensively to uphold the "no newline in plaintext" invariant.
	stripped := strings.ReplaceAll(string(plaintext), "\n", "")

	ciphertext, err := s.oracle.Encrypt(ctx, []byte(stripped))
	if err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "encrypt credentials document", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".artisan-cf-*")
	if err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "create temp credentials file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(ciphertext); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ferrors.Wrap(ferrors.KindExternalTool, "write temp credentials file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ferrors.Wrap(ferrors.KindExternalTool, "close temp credentials file", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return ferrors.Wrap(ferrors.KindExternalTool, "rename temp credentials file into place", err)
	}
	return nil
}
