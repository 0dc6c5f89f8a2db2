// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package shm

import (
	"fmt"
	"os"
	"path/filepath"
)

// fileBackend emulates shared memory without mmap: the backing file is
// read once into a process-local buffer on open and flushed back on
// close. It exists so this package builds on platforms other than Linux
// — the original's Windows branch uses CreateFileMapping/MapViewOfFile
// for genuinely live sharing; this port settles for a same-process
// stand-in rather than a second cgo-free syscall binding per non-Linux
// OS. Cross-process hand-off still works (writer closes, reader opens),
// live concurrent access from two processes does not.
type fileBackend struct {
	f       *os.File
	mem     []byte
	creator bool
	cap     int
}

func openBackend(name string, access Access, cap int) (backend, error) {
	path := filepath.Join(os.TempDir(), "motorrt-shm-"+name)

	f, err := os.OpenFile(path, os.O_RDWR, 0666)
	creator := false
	if err != nil {
		f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
		if err != nil {
			return nil, fmt.Errorf("shm: open %s: %w", path, err)
		}
		creator = true
		if err := f.Truncate(int64(cap)); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return nil, fmt.Errorf("shm: truncate %s: %w", path, err)
		}
	}

	mem := make([]byte, cap)
	if _, err := f.ReadAt(mem, 0); err != nil && !creator {
		_ = f.Close()
		return nil, fmt.Errorf("shm: read %s: %w", path, err)
	}

	return &fileBackend{f: f, mem: mem, creator: creator, cap: cap}, nil
}

func (b *fileBackend) bytes() []byte   { return b.mem }
func (b *fileBackend) isCreator() bool { return b.creator }

func (b *fileBackend) close() error {
	_, werr := b.f.WriteAt(b.mem, 0)
	cerr := b.f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
