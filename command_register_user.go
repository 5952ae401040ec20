package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegisterUserMessage is the registration payload
type RegisterUserMessage struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	UseHashid bool   `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate will run validation rules
func (e RegisterUserMessage) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.Email),
			validation.Field(&e.FirstName, validation.Required, validation.Length(1, 200)),
			validation.Field(&e.LastName, validation.Required, validation.Length(1, 200)),
			validation.Field(&e.Password, validation.Required, validation.Length(1, 72)),
		)
	}, "Invalid registration payload"); err != nil {
		return err.WithCode(goerrors.CodeBadRequest)
	}
	return nil
}

// RegisterUserHandler creates a user, a default organization and an admin
// membership in a single transaction
type RegisterUserHandler struct {
	repo    RepositoryManager
	hasher  PasswordAuthenticator
	logger  Logger
	emailID func(email string) (uuid.UUID, error)
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:    repo,
		hasher:  NewPasswordHasher(passwordHashCost()),
		logger:  defLogger{},
		emailID: func(email string) (uuid.UUID, error) { return hashid.NewUUID(email) },
	}
}

// WithHasher overrides the password hasher
func (h *RegisterUserHandler) WithHasher(hasher PasswordAuthenticator) *RegisterUserHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*UserIdentity, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*UserIdentity, error) {
	event.Email = normalizeEmail(event.Email)
	event.FirstName = strings.TrimSpace(event.FirstName)
	event.LastName = strings.TrimSpace(event.LastName)

	if err := event.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	exists, err := h.repo.Users().EmailExists(ctx, event.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	hash, err := h.hasher.HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Email:        event.Email,
		FirstName:    event.FirstName,
		LastName:     event.LastName,
		PasswordHash: hash,
		IsActive:     true,
	}
	if event.UseHashid {
		id, err := h.emailID(event.Email)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive user id from email")
		}
		user.ID = id
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return err
		}

		org, err := h.repo.Organizations().CreateTx(ctx, tx, &Organization{
			Name: DefaultOrganizationName(user.FirstName),
		})
		if err != nil {
			return err
		}

		_, err = h.repo.Memberships().AddTx(ctx, tx, user.ID, org.ID, true)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, err
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	stored, err := h.repo.Users().FindByID(ctx, user.ID)
	if err != nil {
		h.logger.Error("registered user refetch failed", "user_id", user.ID, "error", err)
		return nil, ErrUserRefetchFailed
	}

	memberships, err := h.repo.Memberships().ListForUser(ctx, user.ID)
	if err != nil {
		h.logger.Error("registered user memberships refetch failed", "user_id", user.ID, "error", err)
		return nil, ErrUserRefetchFailed
	}

	h.logger.Info("registered user", "user_id", stored.ID, "organizations", len(memberships))

	return NewUserIdentity(stored, memberships), nil
}
