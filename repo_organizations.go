package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Organizations is the organization store
type Organizations interface {
	Create(ctx context.Context, org *Organization) (*Organization, error)
	CreateTx(ctx context.Context, tx bun.IDB, org *Organization) (*Organization, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Organization, error)
}

// Memberships stores user to organization links
type Memberships interface {
	Add(ctx context.Context, userID, organizationID uuid.UUID, isAdmin bool) (*UserOrganization, error)
	AddTx(ctx context.Context, tx bun.IDB, userID, organizationID uuid.UUID, isAdmin bool) (*UserOrganization, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*UserOrganization, error)
	ListForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*UserOrganization, error)
}

// OrganizationTokens stores organization API keys
type OrganizationTokens interface {
	CreateTx(ctx context.Context, tx bun.IDB, token *OrganizationAuthToken) (*OrganizationAuthToken, error)
	FindValid(ctx context.Context, organizationID uuid.UUID, token string) (*OrganizationAuthToken, error)
	FindValidTx(ctx context.Context, tx bun.IDB, organizationID uuid.UUID, token string) (*OrganizationAuthToken, error)
}

type organizations struct {
	db *bun.DB
}

// NewOrganizationsRepository returns the bun backed Organizations store
func NewOrganizationsRepository(db *bun.DB) Organizations {
	return &organizations{db: db}
}

func (r *organizations) Create(ctx context.Context, org *Organization) (*Organization, error) {
	return r.CreateTx(ctx, r.db, org)
}

func (r *organizations) CreateTx(ctx context.Context, tx bun.IDB, org *Organization) (*Organization, error) {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	ts := utcNow()
	org.CreatedAt = ts
	org.ModifiedAt = ts

	if _, err := tx.NewInsert().Model(org).Exec(ctx); err != nil {
		return nil, mapStoreError(err, "failed to create organization")
	}
	return org, nil
}

func (r *organizations) FindByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return r.FindByIDTx(ctx, r.db, id)
}

func (r *organizations) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Organization, error) {
	org := &Organization{}
	err := tx.NewSelect().
		Model(org).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrOrganizationNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to find organization")
	}
	return org, nil
}

type memberships struct {
	db *bun.DB
}

// NewMembershipsRepository returns the bun backed Memberships store
func NewMembershipsRepository(db *bun.DB) Memberships {
	return &memberships{db: db}
}

func (r *memberships) Add(ctx context.Context, userID, organizationID uuid.UUID, isAdmin bool) (*UserOrganization, error) {
	return r.AddTx(ctx, r.db, userID, organizationID, isAdmin)
}

func (r *memberships) AddTx(ctx context.Context, tx bun.IDB, userID, organizationID uuid.UUID, isAdmin bool) (*UserOrganization, error) {
	record := &UserOrganization{
		UserID:         userID,
		OrganizationID: organizationID,
		IsAdmin:        isAdmin,
		CreatedAt:      utcNow(),
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, mapStoreError(err, "failed to add user to organization")
	}
	return record, nil
}

func (r *memberships) ListForUser(ctx context.Context, userID uuid.UUID) ([]*UserOrganization, error) {
	return r.ListForUserTx(ctx, r.db, userID)
}

// ListForUserTx returns memberships oldest first, ties broken by organization id
func (r *memberships) ListForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*UserOrganization, error) {
	records := make([]*UserOrganization, 0)
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.created_at ASC, ?TableAlias.organization_id ASC").
		Scan(ctx)
	if err != nil && !isNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list user organizations")
	}
	return records, nil
}

type organizationTokens struct {
	db *bun.DB
}

// NewOrganizationTokensRepository returns the bun backed OrganizationTokens store
func NewOrganizationTokensRepository(db *bun.DB) OrganizationTokens {
	return &organizationTokens{db: db}
}

func (r *organizationTokens) CreateTx(ctx context.Context, tx bun.IDB, token *OrganizationAuthToken) (*OrganizationAuthToken, error) {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.TokenType == "" {
		token.TokenType = OrganizationAuthTokenTypeAPI
	}
	ts := utcNow()
	token.CreatedAt = ts
	token.ModifiedAt = ts

	if _, err := tx.NewInsert().Model(token).Exec(ctx); err != nil {
		return nil, mapStoreError(err, "failed to create organization token")
	}
	return token, nil
}

func (r *organizationTokens) FindValid(ctx context.Context, organizationID uuid.UUID, token string) (*OrganizationAuthToken, error) {
	return r.FindValidTx(ctx, r.db, organizationID, token)
}

// FindValidTx returns the valid API key record matching token, or ErrOrgAuthFailed
func (r *organizationTokens) FindValidTx(ctx context.Context, tx bun.IDB, organizationID uuid.UUID, token string) (*OrganizationAuthToken, error) {
	record := &OrganizationAuthToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.organization_id = ?", organizationID).
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.token_type = ?", OrganizationAuthTokenTypeAPI).
		Where("?TableAlias.valid = ?", true).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrOrgAuthFailed
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to find organization token")
	}
	return record, nil
}
