package hardlink

import "errors"

// ErrUnsupported is returned on platforms without link counts
var ErrUnsupported = errors.New("hardlink detection not supported on this platform")
