package auth

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the user store
type Users interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	EmailExistsTx(ctx context.Context, tx bun.IDB, email string) (bool, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	SaveProfile(ctx context.Context, user *User) (*User, error)
	SaveProfileTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*User, error)
	SetActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) (*User, error)

	FindOrganizationAdmin(ctx context.Context, organizationID uuid.UUID) (*User, error)
	FindOrganizationAdminTx(ctx context.Context, tx bun.IDB, organizationID uuid.UUID) (*User, error)
}

type users struct {
	records repository.Repository[*User]
	db      *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns the bun backed Users store
func NewUsersRepository(db *bun.DB) Users {
	records := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		records: records,
		db:      db,
	}
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	user, err := a.records.GetByIdentifierTx(ctx, tx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to find user by email")
	}
	return user, nil
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *users) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	user := &User{}
	err := tx.NewSelect().
		Model(user).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to find user by id")
	}
	return user, nil
}

func (a *users) EmailExists(ctx context.Context, email string) (bool, error) {
	return a.EmailExistsTx(ctx, a.db, email)
}

func (a *users) EmailExistsTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check email")
	}
	return exists, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx inserts a new user. A unique violation on email comes back as ErrDuplicateEmail.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)

	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, mapStoreError(err, "failed to create user")
	}

	return user, nil
}

func (a *users) SaveProfile(ctx context.Context, user *User) (*User, error) {
	return a.SaveProfileTx(ctx, a.db, user)
}

// SaveProfileTx writes the mutable columns of user
func (a *users) SaveProfileTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	user.Email = normalizeEmail(user.Email)
	user.ModifiedAt = utcNow()

	res, err := tx.NewUpdate().
		Model(user).
		Column("email", "first_name", "last_name", "password_hash", "is_active", "modified_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, mapStoreError(err, "failed to update user")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrUserNotFound
	}

	return user, nil
}

func (a *users) SetActive(ctx context.Context, id uuid.UUID, active bool) (*User, error) {
	return a.SetActiveTx(ctx, a.db, id, active)
}

func (a *users) SetActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) (*User, error) {
	user, err := a.FindByIDTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	user.IsActive = active
	return a.SaveProfileTx(ctx, tx, user)
}

func (a *users) FindOrganizationAdmin(ctx context.Context, organizationID uuid.UUID) (*User, error) {
	return a.FindOrganizationAdminTx(ctx, a.db, organizationID)
}

// FindOrganizationAdminTx returns the earliest admin member of an organization
func (a *users) FindOrganizationAdminTx(ctx context.Context, tx bun.IDB, organizationID uuid.UUID) (*User, error) {
	user := &User{}
	err := tx.NewSelect().
		Model(user).
		Join("JOIN user_organizations AS uo ON uo.user_id = ?TableAlias.id").
		Where("uo.organization_id = ?", organizationID).
		Where("uo.is_admin = ?", true).
		OrderExpr("uo.created_at ASC, ?TableAlias.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to find organization admin")
	}
	return user, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = normalizeEmail(record.Email)

	ts := utcNow()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = ts
	}
	if record.ModifiedAt.IsZero() {
		record.ModifiedAt = ts
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNotFound(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}
