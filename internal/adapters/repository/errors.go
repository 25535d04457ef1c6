package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrStore   = errors.New("store failure")
	ErrInvalid = errors.New("invalid record")
	ErrClosed  = errors.New("store closed")
)
