package compiler

import (
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/microsoft/typescript-go/shim/vfs"
)

// OverlayFS serves in-memory file contents in place of the files of a base
// filesystem. The build uses it to hand rewritten sources to a second
// program for emit; tests use it to compile inline TypeScript.
type OverlayFS struct {
	base  vfs.FS
	files map[string]string
}

var _ vfs.FS = (*OverlayFS)(nil)

// NewOverlayFS layers files (keyed by absolute path) over base.
func NewOverlayFS(base vfs.FS, files map[string]string) *OverlayFS {
	normalized := make(map[string]string, len(files))
	for p, text := range files {
		normalized[tspath.NormalizePath(p)] = text
	}
	return &OverlayFS{base: base, files: normalized}
}

// Overlaid reports whether path is served from memory.
func (o *OverlayFS) Overlaid(path string) bool {
	_, ok := o.files[tspath.NormalizePath(path)]
	return ok
}

func (o *OverlayFS) lookup(path string) (string, bool) {
	text, ok := o.files[tspath.NormalizePath(path)]
	return text, ok
}

func (o *OverlayFS) UseCaseSensitiveFileNames() bool {
	return o.base.UseCaseSensitiveFileNames()
}

func (o *OverlayFS) FileExists(path string) bool {
	if _, ok := o.lookup(path); ok {
		return true
	}
	return o.base.FileExists(path)
}

func (o *OverlayFS) ReadFile(path string) (contents string, ok bool) {
	if text, ok := o.lookup(path); ok {
		return text, true
	}
	return o.base.ReadFile(path)
}

func dirPrefix(path string) string {
	p := tspath.NormalizePath(path)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (o *OverlayFS) DirectoryExists(path string) bool {
	prefix := dirPrefix(path)
	for p := range o.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return o.base.DirectoryExists(path)
}

func (o *OverlayFS) GetAccessibleEntries(path string) vfs.Entries {
	result := o.base.GetAccessibleEntries(path)
	prefix := dirPrefix(path)

	seenFiles := make(map[string]bool, len(result.Files))
	for _, f := range result.Files {
		seenFiles[f] = true
	}
	seenDirs := make(map[string]bool, len(result.Directories))
	for _, d := range result.Directories {
		seenDirs[d] = true
	}

	for p := range o.files {
		rest, found := strings.CutPrefix(p, prefix)
		if !found {
			continue
		}
		if dir, _, nested := strings.Cut(rest, "/"); nested {
			if !seenDirs[dir] {
				seenDirs[dir] = true
				result.Directories = append(result.Directories, dir)
			}
		} else if !seenFiles[rest] {
			seenFiles[rest] = true
			result.Files = append(result.Files, rest)
		}
	}
	return result
}

type overlayFileInfo struct {
	name string
	size int64
}

var _ fs.FileInfo = (*overlayFileInfo)(nil)

func (fi *overlayFileInfo) IsDir() bool        { return false }
func (fi *overlayFileInfo) ModTime() time.Time { return time.Time{} }
func (fi *overlayFileInfo) Mode() fs.FileMode  { return 0o644 }
func (fi *overlayFileInfo) Name() string       { return fi.name }
func (fi *overlayFileInfo) Size() int64        { return fi.size }
func (fi *overlayFileInfo) Sys() any           { return nil }

func (o *OverlayFS) Stat(path string) vfs.FileInfo {
	if text, ok := o.lookup(path); ok {
		return &overlayFileInfo{name: tspath.GetBaseFileName(path), size: int64(len(text))}
	}
	return o.base.Stat(path)
}

func (o *OverlayFS) WalkDir(root string, walkFn vfs.WalkDirFunc) error {
	return o.base.WalkDir(root, walkFn)
}

func (o *OverlayFS) Realpath(path string) string {
	if _, ok := o.lookup(path); ok {
		return path
	}
	return o.base.Realpath(path)
}

func (o *OverlayFS) WriteFile(path string, data string, writeByteOrderMark bool) error {
	if o.Overlaid(path) {
		return fmt.Errorf("refusing to overwrite in-memory source %s", path)
	}
	return o.base.WriteFile(path, data, writeByteOrderMark)
}

func (o *OverlayFS) Remove(path string) error {
	if o.Overlaid(path) {
		return fmt.Errorf("refusing to remove in-memory source %s", path)
	}
	return o.base.Remove(path)
}

func (o *OverlayFS) Chtimes(path string, aTime time.Time, mTime time.Time) error {
	if o.Overlaid(path) {
		return nil
	}
	return o.base.Chtimes(path, aTime, mTime)
}
