package model

import "errors"

var (
	// ErrInvalidArgument marks malformed input: bad enumerator parameters,
	// shape mismatches between a matrix and an allocation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientData is returned when fewer than 2 price rows are available.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUpstreamData wraps failures of the market data provider.
	ErrUpstreamData = errors.New("upstream data failure")
)
