//go:build !linux && !darwin

package propagate

import "io/fs"

// cloneFile is unavailable on this platform; entries get a byte copy.
func cloneFile(src, dst string, _ fs.FileMode) (done, exists bool) {
	return false, false
}
