package auth

import (
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		ok         bool
	}{
		{
			name:       "postgres email",
			err:        &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"},
			constraint: "users_email_key",
			ok:         true,
		},
		{
			name: "postgres other code",
			err:  &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "fk"},
			ok:   false,
		},
		{
			name:       "wrapped postgres",
			err:        fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "organization_auth_tokens_token_key"}),
			constraint: "organization_auth_tokens_token_key",
			ok:         true,
		},
		{
			name:       "sqlite",
			err:        fmt.Errorf("constraint failed: UNIQUE constraint failed: users.email (2067)"),
			constraint: "users.email",
			ok:         true,
		},
		{
			name: "other error",
			err:  fmt.Errorf("connection refused"),
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			constraint, ok := uniqueViolation(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.constraint, constraint)
		})
	}
}

func TestMapStoreError(t *testing.T) {
	assert.Nil(t, mapStoreError(nil, "noop"))

	err := mapStoreError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"}, "insert")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	err = mapStoreError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "organization_auth_tokens_token_key"}, "insert")
	assert.ErrorIs(t, err, errAPIKeyTaken)

	err = mapStoreError(fmt.Errorf("UNIQUE constraint failed: organization_auth_tokens.token"), "insert")
	assert.ErrorIs(t, err, errAPIKeyTaken)

	err = mapStoreError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "user_organizations_pkey"}, "insert")
	var richErr *goerrors.Error
	assert.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryConflict, richErr.Category)
	assert.Equal(t, "user_organizations_pkey", richErr.Metadata["constraint"])

	err = mapStoreError(fmt.Errorf("disk full"), "insert")
	assert.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryInternal, richErr.Category)
}
