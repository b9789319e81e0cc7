package cache

import "errors"

// ErrConfiguration is returned when a cache geometry cannot be expressed as
// whole tag, index and offset bit-fields.
var ErrConfiguration = errors.New("invalid cache configuration")

// ErrAllocation is returned when the block storage of a cache cannot be
// obtained. No cache is returned alongside it.
var ErrAllocation = errors.New("cache storage allocation failed")
