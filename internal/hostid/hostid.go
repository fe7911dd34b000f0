// Package hostid resolves this host's stable machine identity (spec §6:
// /etc/artisan_id), generating it on first read if absent.
package hostid

import (
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultPath is the well-known location of the host identity file.
const DefaultPath = "/etc/artisan_id"

var (
	once      sync.Once
	cached    string
	cacheErr  error
	cachePath string
)

// Get returns the host's UUIDv4 identity, generating and persisting one at
// DefaultPath if the file does not yet exist. The value is cached for the
// lifetime of the process.
func Get() (string, error) {
	return GetFromPath(DefaultPath)
}

// GetFromPath is Get with an overridable path, used by tests.
func GetFromPath(path string) (string, error) {
	once.Do(func() {
		cachePath = path
		cached, cacheErr = loadOrCreate(path)
	})
	if path != cachePath {
		// A different path than the cached one was requested (test isolation).
		return loadOrCreate(path)
	}
	return cached, cacheErr
}

// ResetCache clears the process-wide cache. Only used in tests.
func ResetCache() {
	once = sync.Once{}
	cached, cacheErr, cachePath = "", nil, ""
}

func loadOrCreate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	id := uuid.New().String()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", err
	}
	return id, nil
}
