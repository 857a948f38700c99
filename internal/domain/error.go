package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrNoLinkedAccount    = errors.New("no linked instagram account")

	// ErrUpstream marks transport, auth and rate-limit failures of the social network.
	ErrUpstream = errors.New("upstream service error")
	// ErrStorage marks any failure of the backing store.
	ErrStorage = errors.New("storage error")
	// ErrDelivery marks a failure of the message channel.
	ErrDelivery = errors.New("delivery error")
)
