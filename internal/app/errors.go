package service

import (
	"errors"

	"github.com/okian/orsheep/internal/domain/ranking"
)

// Sentinel kinds returned by Service.
var (
	// ErrInvalidArgument is shared with the ranking package so one errors.Is
	// check covers both layers.
	ErrInvalidArgument = ranking.ErrInvalidArgument
	ErrNotFound        = errors.New("not found")
	ErrBackpressure    = errors.New("event queue full")
	ErrNotStarted      = errors.New("service not started")
)
