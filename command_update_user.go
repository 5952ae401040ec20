package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UpdateUserMessage holds the optional profile changes. Nil fields are left untouched.
type UpdateUserMessage struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Password  *string `json:"password,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

func (e UpdateUserMessage) Type() string { return "user.update" }

// Validate will run validation rules on the fields that are set
func (e UpdateUserMessage) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.Email, validation.NilOrNotEmpty, validation.Length(3, 254), is.Email),
			validation.Field(&e.FirstName, validation.NilOrNotEmpty, validation.Length(1, 200)),
			validation.Field(&e.LastName, validation.NilOrNotEmpty, validation.Length(1, 200)),
			validation.Field(&e.Password, validation.NilOrNotEmpty, validation.Length(1, 72)),
		)
	}, "Invalid user update payload"); err != nil {
		return err.WithCode(goerrors.CodeBadRequest)
	}
	return nil
}

// UpdateUserHandler applies profile, password and activation changes
type UpdateUserHandler struct {
	repo   RepositoryManager
	hasher PasswordAuthenticator
	logger Logger
}

// NewUpdateUserHandler creates a handler with sane defaults.
func NewUpdateUserHandler(repo RepositoryManager) *UpdateUserHandler {
	return &UpdateUserHandler{
		repo:   repo,
		hasher: NewPasswordHasher(passwordHashCost()),
		logger: defLogger{},
	}
}

// WithHasher overrides the password hasher
func (h *UpdateUserHandler) WithHasher(hasher PasswordAuthenticator) *UpdateUserHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *UpdateUserHandler) WithLogger(logger Logger) *UpdateUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UpdateUserHandler) Execute(ctx context.Context, userID uuid.UUID, event UpdateUserMessage) (*UserIdentity, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user update",
		)
	default:
		return h.execute(ctx, userID, event)
	}
}

func (h *UpdateUserHandler) execute(ctx context.Context, userID uuid.UUID, event UpdateUserMessage) (*UserIdentity, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	var hash string
	if event.Password != nil {
		var err error
		if hash, err = h.hasher.HashPassword(*event.Password); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var identity *UserIdentity
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().FindByIDTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		if event.Email != nil {
			email := normalizeEmail(*event.Email)
			if email != user.Email {
				exists, err := h.repo.Users().EmailExistsTx(ctx, tx, email)
				if err != nil {
					return err
				}
				if exists {
					return ErrDuplicateEmail
				}
				user.Email = email
			}
		}

		if event.FirstName != nil {
			user.FirstName = strings.TrimSpace(*event.FirstName)
		}

		if event.LastName != nil {
			user.LastName = strings.TrimSpace(*event.LastName)
		}

		if hash != "" {
			user.PasswordHash = hash
		}

		if event.IsActive != nil {
			user.IsActive = *event.IsActive
		}

		if user, err = h.repo.Users().SaveProfileTx(ctx, tx, user); err != nil {
			return err
		}

		memberships, err := h.repo.Memberships().ListForUserTx(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		identity = NewUserIdentity(user, memberships)
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, err
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user update transaction failed")
	}

	h.logger.Info("updated user", "user_id", userID)

	return identity, nil
}
