package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// mapStoreError turns driver errors into package errors. Unique violations on
// the users email column become ErrDuplicateEmail, so the loser of a
// registration race gets the same answer as a sequential duplicate.
func mapStoreError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if constraint, ok := uniqueViolation(err); ok {
		if isEmailConstraint(constraint) {
			return ErrDuplicateEmail
		}
		if isAPIKeyConstraint(constraint) {
			return errAPIKeyTaken
		}
		return errors.Wrap(err, errors.CategoryConflict, msg).
			WithCode(errors.CodeConflict).
			WithMetadata(map[string]any{"constraint": constraint})
	}

	return errors.Wrap(err, errors.CategoryInternal, msg)
}

// uniqueViolation reports whether err is a unique constraint failure and
// returns the constraint (postgres) or column list (sqlite) involved
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgerrcode.UniqueViolation {
			return pgErr.ConstraintName, true
		}
		return "", false
	}

	// sqlite: "UNIQUE constraint failed: users.email"
	const marker = "UNIQUE constraint failed: "
	text := err.Error()
	if idx := strings.Index(text, marker); idx >= 0 {
		rest := text[idx+len(marker):]
		if end := strings.IndexAny(rest, " ("); end >= 0 {
			rest = rest[:end]
		}
		return rest, true
	}

	return "", false
}

// errAPIKeyTaken marks an API key insert that lost to an identical key
// stored by a concurrent transaction
var errAPIKeyTaken = errors.New("organization api key already stored", errors.CategoryConflict).
	WithCode(errors.CodeConflict)

func isAPIKeyConstraint(constraint string) bool {
	switch constraint {
	case "organization_auth_tokens_token_key", "organization_auth_tokens.token":
		return true
	}
	return false
}

// isEmailConstraint also matches the users primary key, which is derived
// from the email when hashid ids are enabled
func isEmailConstraint(constraint string) bool {
	switch constraint {
	case "users_email_key", "users.email", "users_pkey", "users.id":
		return true
	}
	return false
}
