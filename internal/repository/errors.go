package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrDuplicate is returned when an insert violates a unique index.
var ErrDuplicate = errors.New("duplicate record")

func wrapCreate(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s failed: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
