package service

import (
	"errors"
	"fmt"

	"takkeh/internal/domain"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("takkeh/internal/service")

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// storageErr classifies a repository failure. Domain errors pass through,
// anything else becomes ErrStorage with the cause kept for logging.
func storageErr(op string, err error) error {
	for _, known := range []error{
		domain.ErrInvalidRequest,
		domain.ErrUnauthorized,
		domain.ErrForbidden,
		domain.ErrNotFound,
		domain.ErrConflict,
		domain.ErrStorage,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrNotFound, fmt.Sprintf(format, args...))
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrForbidden, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConflict, fmt.Sprintf(format, args...))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
