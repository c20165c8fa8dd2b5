package repository

import (
	"context"

	"github.com/amirasaad/presale/pkg/repository"
	"gorm.io/gorm"
)

// Do runs fn in a transaction boundary, handing it a Store bound to the
// transaction session. Nested calls reuse the outer transaction.
func (s *Store) Do(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}
