// Filesystem collaborator stub
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package vfs defines the filesystem interface contract spec.md's
// "Persisted state" note refers to: "the loader reads modules from
// byte buffers; whoever supplies those buffers (VFS, FAT32) is out of
// scope". Directory traversal, permissions and on-disk persistence are
// out of core scope; MemFS exists so module.Loader.Load has a
// concrete, in-memory byte-buffer source to test against.
package vfs

import (
	"io"

	"github.com/usbarmory/virtcore/kernelerr"
)

// FileSystem is the contract a mounted filesystem is built against.
type FileSystem interface {
	Open(path string) (File, error)
}

// File is an opened, readable handle into a FileSystem.
type File interface {
	Read(buf []byte) (n int, err error)
	Size() int64
	Close() error
}

// MemFS is a FileSystem backed entirely by in-memory byte slices.
type MemFS struct {
	files map[string][]byte
}

// NewMemFS returns an empty MemFS.
func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

// Put registers data under path, replacing any prior contents.
func (fs *MemFS) Put(path string, data []byte) {
	fs.files[path] = data
}

// Open returns a File reading path's registered contents, or
// kernelerr.NotFound if no such path was Put.
func (fs *MemFS) Open(path string) (File, error) {
	data, ok := fs.files[path]
	if !ok {
		return nil, kernelerr.New(kernelerr.NotFound, "vfs", "Open", path)
	}

	return &memFile{data: data}, nil
}

type memFile struct {
	data []byte
	pos  int
}

func (f *memFile) Read(buf []byte) (int, error) {
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}

	n := copy(buf, f.data[f.pos:])
	f.pos += n

	return n, nil
}

func (f *memFile) Size() int64 {
	return int64(len(f.data))
}

func (f *memFile) Close() error {
	return nil
}
