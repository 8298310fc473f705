package storage

import (
	"errors"

	apperrors "github.com/bgfactura/invoicing/internal/errors"
)

// Translate maps store sentinels to service errors. resource names the
// entity in not-found messages, conflict is the client-facing message used
// for uniqueness violations.
func Translate(err error, resource, conflict string) error {
	switch {
	case err == nil:
		return nil
	case apperrors.GetServiceError(err) != nil:
		return err
	case errors.Is(err, ErrNotFound):
		return apperrors.NotFound(resource)
	case errors.Is(err, ErrConflict):
		if conflict == "" {
			conflict = resource + " already exists"
		}
		return apperrors.Conflict(conflict)
	default:
		return apperrors.Internal("database error", err)
	}
}
