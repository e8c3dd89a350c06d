package models

import (
	"github.com/cockroachdb/errors"

	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

// Base errors, each mapped to an API status code
var (
	// BadParameterError is rendered with the http status code 400
	BadParameterError = errors.New("bad parameter")

	// ForbiddenError is rendered with the http status code 403
	ForbiddenError = errors.New("forbidden")

	// NotFoundError is rendered with the http status code 404
	NotFoundError = errors.New("not found")
)

var (
	// ErrInvalidRange is returned before any store access when start > end.
	ErrInvalidRange = timeslot.ErrInvalidRange

	// ErrAccessDenied means the viewer is neither the target, an accepted
	// friend of the target, nor a member of a group the target belongs to.
	ErrAccessDenied = errors.Wrap(ForbiddenError, "no right to read this user's availability")

	ErrUnknownUser  = errors.Wrap(NotFoundError, "unknown user")
	ErrUnknownGroup = errors.Wrap(NotFoundError, "unknown group")

	ErrNotOwner = errors.Wrap(ForbiddenError, "only the owner may change this availability")

	// ErrParserRejected wraps an { error } payload from the text parser.
	ErrParserRejected = errors.Wrap(BadParameterError, "availability parser rejected the text")
)
