//go:build linux

package propagate

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// cloneFile attempts a copy-on-write clone of src at dst via the
// FICLONE ioctl. Returns done=false when the filesystem does not
// support cloning, in which case the caller falls back to a byte
// copy. exists is set when dst already existed (entry skipped).
func cloneFile(src, dst string, mode fs.FileMode) (done, exists bool) {
	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return true, true
		}
		return false, false
	}
	defer dstFile.Close()

	srcFile, err := os.Open(src)
	if err != nil {
		os.Remove(dst)
		return false, false
	}
	defer srcFile.Close()

	if err := unix.IoctlFileClone(int(dstFile.Fd()), int(srcFile.Fd())); err != nil {
		os.Remove(dst)
		return false, false
	}
	return true, false
}
