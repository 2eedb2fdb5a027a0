//go:build darwin

package propagate

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

// cloneFile attempts a copy-on-write clone of src at dst via
// clonefile(2), which APFS supports natively. Returns done=false when
// cloning is unsupported so the caller can fall back to a byte copy.
// exists is set when dst already existed (entry skipped).
func cloneFile(src, dst string, _ fs.FileMode) (done, exists bool) {
	err := unix.Clonefile(src, dst, unix.CLONE_NOFOLLOW)
	if err == nil {
		return true, false
	}
	if errors.Is(err, unix.EEXIST) {
		return true, true
	}
	return false, false
}
