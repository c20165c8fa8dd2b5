package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/amirasaad/presale/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMapGormErrorToDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    error
		expected error
	}{
		{name: "duplicate key", input: gorm.ErrDuplicatedKey, expected: domain.ErrAlreadyExists},
		{name: "record not found", input: gorm.ErrRecordNotFound, expected: domain.ErrNotFound},
		{name: "foreign key", input: gorm.ErrForeignKeyViolated, expected: domain.ErrNotFound},
		{
			name:     "wrapped duplicate key",
			input:    fmt.Errorf("create payment webhook: %w", gorm.ErrDuplicatedKey),
			expected: domain.ErrAlreadyExists,
		},
		{
			name:     "joined chain",
			input:    errors.Join(errors.New("outer"), errors.Join(errors.New("middle"), gorm.ErrRecordNotFound)),
			expected: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, MapGormErrorToDomain(tt.input), tt.expected)
		})
	}
}

func TestMapGormErrorToDomain_Passthrough(t *testing.T) {
	t.Parallel()

	require.NoError(t, MapGormErrorToDomain(nil))

	original := errors.New("connection reset by peer")
	assert.Same(t, original, MapGormErrorToDomain(original))
}
