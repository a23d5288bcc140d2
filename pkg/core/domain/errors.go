package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps exactly one of
// these so the boundary layer can pick a response with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrResourceExhausted = errors.New("resource exhausted")
)

var (
	ErrInvalidURL         = fmt.Errorf("%w: original url must be an absolute http or https url", ErrValidation)
	ErrInvalidSlug        = fmt.Errorf("%w: slug must be 5-12 characters of [A-Za-z0-9_-]", ErrValidation)
	ErrOwnerRequired      = fmt.Errorf("%w: owner is required", ErrValidation)
	ErrSlugReserved       = fmt.Errorf("%w: slug is reserved", ErrConflict)
	ErrSlugInUse          = fmt.Errorf("%w: slug already in use", ErrConflict)
	ErrLinkNotFound       = fmt.Errorf("%w: link not found", ErrNotFound)
	ErrSlugSpaceExhausted = fmt.Errorf("%w: could not allocate a free slug", ErrResourceExhausted)
)
