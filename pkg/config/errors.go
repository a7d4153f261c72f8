package config

import "errors"

// ErrConfiguration is the sentinel wrapped by every configuration
// loading/validation failure, so callers can use a single errors.Is
// check regardless of which step raised it.
var ErrConfiguration = errors.New("configuration error")
