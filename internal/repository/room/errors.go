package room

import "errors"

var ErrSnapshotNotFound = errors.New("snapshot not found")
