//go:build windows

package hardlink

// HasHardlinks is not supported on Windows
func HasHardlinks(path string) (bool, error) {
	return false, ErrUnsupported
}

// GetHardlinkCount is not supported on Windows
func GetHardlinkCount(path string) (uint64, error) {
	return 0, ErrUnsupported
}
