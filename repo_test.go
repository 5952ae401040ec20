package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-org-auth"
)

func newUser(email string) *auth.User {
	return &auth.User{
		Email:        email,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PasswordHash: "hash",
		IsActive:     true,
	}
}

func TestRepositoryManagerValidate(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	assert.NoError(t, repo.Validate())
	assert.NotPanics(t, repo.MustValidate)
}

func TestUsersRepository(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(newTestDB(t))

	user, err := repo.Users().Register(ctx, newUser("  Ada@Example.com "))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.False(t, user.CreatedAt.IsZero())

	t.Run("find by email is case insensitive", func(t *testing.T) {
		found, err := repo.Users().FindByEmail(ctx, "ADA@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("find by id", func(t *testing.T) {
		found, err := repo.Users().FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, found.Email)
		assert.True(t, found.IsActive)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.Users().FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, auth.ErrUserNotFound)

		_, err = repo.Users().FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("email exists", func(t *testing.T) {
		exists, err := repo.Users().EmailExists(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.Users().EmailExists(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("unique email violation maps to duplicate email", func(t *testing.T) {
		_, err := repo.Users().Register(ctx, newUser("ada@example.com"))
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
	})

	t.Run("set active", func(t *testing.T) {
		updated, err := repo.Users().SetActive(ctx, user.ID, false)
		require.NoError(t, err)
		assert.False(t, updated.IsActive)

		found, err := repo.Users().FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, found.IsActive)
	})

	t.Run("save profile of missing user", func(t *testing.T) {
		ghost := newUser("ghost@example.com")
		ghost.ID = uuid.New()
		_, err := repo.Users().SaveProfile(ctx, ghost)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})
}

func TestMembershipsOrdering(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(newTestDB(t))

	user, err := repo.Users().Register(ctx, newUser("order@example.com"))
	require.NoError(t, err)

	first, err := repo.Organizations().Create(ctx, &auth.Organization{Name: "first"})
	require.NoError(t, err)
	second, err := repo.Organizations().Create(ctx, &auth.Organization{Name: "second"})
	require.NoError(t, err)

	_, err = repo.Memberships().Add(ctx, user.ID, first.ID, true)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = repo.Memberships().Add(ctx, user.ID, second.ID, false)
	require.NoError(t, err)

	memberships, err := repo.Memberships().ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 2)
	assert.Equal(t, first.ID, memberships[0].OrganizationID)
	assert.True(t, memberships[0].IsAdmin)
	assert.Equal(t, second.ID, memberships[1].OrganizationID)

	none, err := repo.Memberships().ListForUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindOrganizationAdmin(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(newTestDB(t))

	org, err := repo.Organizations().Create(ctx, &auth.Organization{Name: "acme"})
	require.NoError(t, err)

	member, err := repo.Users().Register(ctx, newUser("member@example.com"))
	require.NoError(t, err)
	admin, err := repo.Users().Register(ctx, newUser("admin@example.com"))
	require.NoError(t, err)

	_, err = repo.Users().FindOrganizationAdmin(ctx, org.ID)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	_, err = repo.Memberships().Add(ctx, member.ID, org.ID, false)
	require.NoError(t, err)
	_, err = repo.Memberships().Add(ctx, admin.ID, org.ID, true)
	require.NoError(t, err)

	found, err := repo.Users().FindOrganizationAdmin(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, found.ID)
}

func TestOrganizationsRepository(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(newTestDB(t))

	org, err := repo.Organizations().Create(ctx, &auth.Organization{Name: auth.DefaultOrganizationName("Ada")})
	require.NoError(t, err)
	assert.Equal(t, "Ada's Organization", org.Name)

	found, err := repo.Organizations().FindByID(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, org.Name, found.Name)

	_, err = repo.Organizations().FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrOrganizationNotFound)
}

func TestOrganizationTokensRepository(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(newTestDB(t))

	org, err := repo.Organizations().Create(ctx, &auth.Organization{Name: "acme"})
	require.NoError(t, err)

	var created *auth.OrganizationAuthToken
	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err = repo.OrganizationTokens().CreateTx(ctx, tx, &auth.OrganizationAuthToken{
			OrganizationID: org.ID,
			Token:          "token-value",
			Valid:          true,
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, auth.OrganizationAuthTokenTypeAPI, created.TokenType)

	found, err := repo.OrganizationTokens().FindValid(ctx, org.ID, "token-value")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.OrganizationTokens().FindValid(ctx, org.ID, "other")
	assert.ErrorIs(t, err, auth.ErrOrgAuthFailed)

	_, err = repo.OrganizationTokens().FindValid(ctx, uuid.New(), "token-value")
	assert.ErrorIs(t, err, auth.ErrOrgAuthFailed)
}

func TestRunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(newTestDB(t))

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := repo.Users().RegisterTx(ctx, tx, newUser("rollback@example.com")); err != nil {
			return err
		}
		_, err := repo.Users().RegisterTx(ctx, tx, newUser("rollback@example.com"))
		return err
	})
	assert.ErrorIs(t, err, auth.ErrDuplicateEmail)

	exists, err := repo.Users().EmailExists(ctx, "rollback@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}
