package compiler

import (
	"github.com/microsoft/typescript-go/shim/bundled"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/vfs"
	"github.com/microsoft/typescript-go/shim/vfs/cachedvfs"
	"github.com/microsoft/typescript-go/shim/vfs/osvfs"
)

// CreateDefaultFS creates a filesystem using the OS filesystem with bundled libs.
func CreateDefaultFS() vfs.FS {
	return bundled.WrapFS(cachedvfs.From(osvfs.FS()))
}

// CreateDefaultHost creates a compiler host with default settings.
func CreateDefaultHost(cwd string, fs vfs.FS) shimcompiler.CompilerHost {
	return shimcompiler.NewCompilerHost(cwd, fs, bundled.LibPath(), nil, nil)
}

// CreateOverlayHost creates a compiler host whose filesystem serves files
// (absolute path → contents) instead of the matching files under base.
// When base is nil the uncached OS filesystem with bundled libs is used, so
// that edits on disk between builds are always seen.
func CreateOverlayHost(cwd string, base vfs.FS, files map[string]string) (shimcompiler.CompilerHost, *OverlayFS) {
	if base == nil {
		base = bundled.WrapFS(osvfs.FS())
	}
	overlay := NewOverlayFS(base, files)
	return CreateDefaultHost(cwd, overlay), overlay
}
