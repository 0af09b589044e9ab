//go:build linux

package search

import (
	"os"

	"golang.org/x/sys/unix"
)

func dropPageCache(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_DONTNEED)
}
