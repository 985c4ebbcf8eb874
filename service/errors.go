package service

import "errors"

// ErrNotSynced is returned by queries issued before the first full update
var ErrNotSynced = errors.New("mirror has not been synced yet")
