package nidresolver

import (
	"errors"

	"github.com/psreverse/nidresolver/pkg/remote"
)

var (
	// ErrNotReserved is returned when a library is added before Reserve.
	ErrNotReserved = errors.New("resolver: capacity not reserved")

	// ErrAlreadyReserved is returned by a second Reserve call; the
	// reservation is one-shot, capacity never grows.
	ErrAlreadyReserved = errors.New("resolver: capacity already reserved")

	// ErrCapacity is returned when a reservation cannot be satisfied.
	ErrCapacity = errors.New("resolver: reservation not satisfiable")

	// ErrCapacityExceeded is returned when every reserved slot is used.
	ErrCapacityExceeded = errors.New("resolver: library capacity exceeded")

	ErrInvalidArgument = errors.New("resolver: invalid argument")

	// Remote ingestion failures, re-exported for errors.Is convenience.
	ErrRemoteRead        = remote.ErrRemoteRead
	ErrMalformedMetadata = remote.ErrMalformedMetadata
)
