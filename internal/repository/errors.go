package repository

import "errors"

// ErrStatusConflict indicates a conditional transition found the record in a different state.
var ErrStatusConflict = errors.New("record status changed concurrently")
