package auth

import (
	"context"
	stderrors "errors"

	"github.com/goliatone/go-errors"
)

// UserProvider checks email and password pairs against the user store
type UserProvider struct {
	users  Users
	hasher PasswordAuthenticator
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(users Users, hasher PasswordAuthenticator) *UserProvider {
	if hasher == nil {
		hasher = NewPasswordHasher(passwordHashCost())
	}
	return &UserProvider{
		users:  users,
		hasher: hasher,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyCredentials will find the user by email and compare the password.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (u UserProvider) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, ErrUserNotFound) {
			u.logger.Debug("login for unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if !u.hasher.Verify(password, user.PasswordHash) {
		u.logger.Debug("login password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
