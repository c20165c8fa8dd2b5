package repository

import (
	"errors"

	"github.com/amirasaad/presale/pkg/domain"
	"gorm.io/gorm"
)

// MapGormErrorToDomain converts GORM errors to domain errors so callers
// above the store never match on driver-level sentinels. Unknown errors
// pass through unchanged.
func MapGormErrorToDomain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrAlreadyExists
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		// a transaction or reservation pointing at a missing parent
		return domain.ErrNotFound
	default:
		return err
	}
}
