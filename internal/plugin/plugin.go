// Package plugin holds the transformer's identity. Build tools combine the
// name, the version and the active configuration into a cache key, so any
// change to one of them invalidates cached output.
package plugin

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"runtime/debug"
	"strings"
)

// Name identifies the transformer in cache keys.
const Name = "type-safe-transformer"

//go:embed VERSION
var embeddedVersion string

// Version returns the version string.
//
// Installed builds report the module version (e.g. "v0.1.0"). Development
// builds report "devel-0.1.0+abc1234", with "-dirty" appended when the
// working tree had local changes.
func Version() string {
	base := strings.TrimSpace(embeddedVersion)

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return base
	}
	return versionFrom(base, info)
}

func versionFrom(base string, info *debug.BuildInfo) string {
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) >= 7 {
				rev = s.Value[:7]
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	v := "devel-" + base
	if rev != "" {
		v += "+" + rev
		if dirty {
			v += "-dirty"
		}
	}
	return v
}

// CacheKey derives a cache key from the transformer identity and a digest
// of the active configuration.
func CacheKey(configHash string) string {
	return cacheKey(Version(), configHash)
}

func cacheKey(version, configHash string) string {
	h := sha256.New()
	for _, part := range []string{Name, version, configHash} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
