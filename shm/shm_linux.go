// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// posixBackend maps a POSIX shared-memory object, mirroring shm_init's
// Linux branch: try to open an existing object read-write first, and
// only fall back to O_CREAT (recording is_creator) when that fails.
// glibc's shm_open itself is nothing more than open(2) under
// /dev/shm, so this backend talks to that path directly instead of
// carrying a cgo dependency for the libc wrapper.
type posixBackend struct {
	fd      int
	mem     []byte
	creator bool
	shmPath string
}

func openBackend(name string, access Access, cap int) (backend, error) {
	path := "/dev/shm/" + name

	fd, err := unix.Open(path, unix.O_RDWR, 0666)
	creator := false
	if err != nil {
		fd, err = unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0666)
		if err != nil {
			return nil, fmt.Errorf("shm: open %s: %w", path, err)
		}
		creator = true
		if err := unix.Ftruncate(fd, int64(cap)); err != nil {
			_ = unix.Close(fd)
			_ = unix.Unlink(path)
			return nil, fmt.Errorf("shm: truncate %s: %w", path, err)
		}
	}

	prot := unix.PROT_READ
	if access == ReadWrite {
		prot |= unix.PROT_WRITE
	}
	mem, err := unix.Mmap(fd, 0, cap, prot, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		if creator {
			_ = unix.Unlink(path)
		}
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	return &posixBackend{fd: fd, mem: mem, creator: creator, shmPath: path}, nil
}

func (b *posixBackend) bytes() []byte   { return b.mem }
func (b *posixBackend) isCreator() bool { return b.creator }

func (b *posixBackend) close() error {
	err := unix.Munmap(b.mem)
	if cerr := unix.Close(b.fd); err == nil {
		err = cerr
	}
	if b.creator {
		if uerr := unix.Unlink(b.shmPath); err == nil {
			err = uerr
		}
	}
	return err
}
