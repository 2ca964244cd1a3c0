package services

import (
	"errors"

	"mesa/internal/core"
)

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
