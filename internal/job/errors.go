package job

import "errors"

var ErrNotFound = errors.New("attempt not found")
