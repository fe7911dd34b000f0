// Package buildinfo holds the one VersionTag every daemon in this build
// reports and compares incoming connections against (spec §4.2).
package buildinfo

import "github.com/Artisan-Hosting/Artisan-Platform/internal/version"

// LocalVersion is this build's VersionTag.
var LocalVersion = version.Tag{Number: "1.0.0", Channel: version.Production}
