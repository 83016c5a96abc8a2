package nearlot

import "github.com/kailas-cloud/nearlot/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidArgument  = domain.ErrInvalidArgument
	ErrNotFound         = domain.ErrNotFound
	ErrAlreadyExists    = domain.ErrAlreadyExists
	ErrConflict         = domain.ErrConflict
	ErrForbidden        = domain.ErrForbidden
	ErrStoreUnavailable = domain.ErrStoreUnavailable
	ErrDescriberError   = domain.ErrDescriberError
)
