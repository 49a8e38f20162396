package repository

import "errors"

// Sentinel kinds for fact database errors.
var (
	ErrNotFound       = errors.New("record not found")
	ErrStore          = errors.New("fact store failure")
	ErrUnknownDriver  = errors.New("unknown database driver")
	ErrInvalidDataset = errors.New("invalid dataset")
)
