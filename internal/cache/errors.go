package cache

import "errors"

// ErrInvalidCapacity is returned by New when capacity is not positive.
// The failing call touches no state; previously created handlers and the
// last-configured defaults are unaffected.
var ErrInvalidCapacity = errors.New("cache: capacity must be positive")
