package domain

import "errors"

// ErrNotFound indicates the requested entity was not found. Expired
// cache entries surface as not found as well.
var ErrNotFound = errors.New("not found")
