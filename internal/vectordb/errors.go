package vectordb

import "errors"

// ErrNoIndex is returned when a user has no stored document index yet.
var ErrNoIndex = errors.New("no document index for user")

// ErrBadUserID is returned when a user id cannot be used as a storage key.
var ErrBadUserID = errors.New("invalid user id")
