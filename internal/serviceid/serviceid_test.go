package serviceid_test

import (
	"testing"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/serviceid"
	"github.com/stretchr/testify/assert"
)

func TestFromIsDeterministicAndEightHex(t *testing.T) {
	a := serviceid.From("user-repo-main")
	b := serviceid.From("user-repo-main")
	assert.Equal(t, a, b)
	assert.Len(t, a, 8)
}

func TestFromDiffersOnInput(t *testing.T) {
	assert.NotEqual(t, serviceid.From("a"), serviceid.From("b"))
}

func TestFromRepoMatchesFrom(t *testing.T) {
	assert.Equal(t, serviceid.From("alice-site-main"), serviceid.FromRepo("alice", "site", "main"))
}

func TestFromManifestPathMatchesFrom(t *testing.T) {
	assert.Equal(t, serviceid.From("foo/bar/directive.ais"), serviceid.FromManifestPath("foo/bar/directive.ais"))
}
