package recorder

import "errors"

var errQueueFull = errors.New("journal queue full")
