// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package vfs addresses assets by logical path, resolving across an
// ordered list of directories and PAK archives (spec.md §2, §3). It is
// grounded on the teacher's load/locator.go Locator, generalized from
// a single zip-or-disk fallback to an explicit ordered search path
// over real directories and any number of PAK archives.
package vfs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/cormac-obrien/richter-sub002/pak"
)

// FS is a virtual filesystem: an ordered list of search locations.
// Paths are canonical forward-slash paths with no leading slash
// (spec.md §3, "Asset paths").
type FS struct {
	dirs     []string
	archives []*pak.Archive
}

// New returns an empty FS. Use AddDir and AddArchive to build the
// search path before resolving assets.
func New() *FS { return &FS{} }

// AddDir appends a real filesystem directory to the search path.
// Directories are searched in the order they were added, before any
// archive (spec.md §3).
func (fs *FS) AddDir(dir string) { fs.dirs = append(fs.dirs, dir) }

// AddArchive appends an already-opened PAK archive to the search path.
// Archives are searched, in the order added, after all directories.
func (fs *FS) AddArchive(a *pak.Archive) { fs.archives = append(fs.archives, a) }

// Clean normalizes p into the canonical form VFS paths use: forward
// slashes, no leading slash, no "." or ".." segments.
func Clean(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// Open resolves name against the search path and returns its bytes.
// The first match wins: directories in added order, then archives in
// added order (spec.md §3).
func (fs *FS) Open(name string) ([]byte, error) {
	name = Clean(name)
	for _, dir := range fs.dirs {
		data, err := os.ReadFile(path.Join(dir, name))
		if err == nil {
			return data, nil
		}
	}
	for _, a := range fs.archives {
		if data, err := a.Bytes(name); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("vfs: no such asset %q", name)
}

// OpenReader is a convenience wrapper for callers that want to stream
// (e.g. image decoders) rather than hold the whole blob.
func (fs *FS) OpenReader(name string) (io.ReadCloser, error) {
	data, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Has reports whether name resolves to anything in the search path.
func (fs *FS) Has(name string) bool {
	_, err := fs.Open(name)
	return err == nil
}
