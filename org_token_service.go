package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OrgTokenService issues and resolves organization API keys.
// Keys are signed tokens that must also be persisted as valid records.
type OrgTokenService struct {
	repo   RepositoryManager
	tokens *TokenService
	logger Logger
	now    func() time.Time
}

var _ OrganizationAuthenticator = (*OrgTokenService)(nil)

// NewOrgTokenService creates a new OrgTokenService
func NewOrgTokenService(repo RepositoryManager, tokens *TokenService) *OrgTokenService {
	return &OrgTokenService{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
		now:    utcNow,
	}
}

func (s *OrgTokenService) WithLogger(l Logger) *OrgTokenService {
	if l != nil {
		s.logger = l
	}
	return s
}

// WithClock overrides the time source used for claims and expiry checks
func (s *OrgTokenService) WithClock(now func() time.Time) *OrgTokenService {
	if now != nil {
		s.now = now
	}
	return s
}

// CreateOrgAPIToken mints and stores an API key for the organization.
// When a concurrent call stores the same key first, the stored record is returned.
func (s *OrgTokenService) CreateOrgAPIToken(ctx context.Context, organizationID string) (*OrganizationAuthToken, error) {
	orgID, err := uuid.Parse(organizationID)
	if err != nil {
		return nil, ErrOrganizationNotFound
	}

	token, err := s.encodeAPIKey(orgID)
	if err != nil {
		return nil, err
	}

	var out *OrganizationAuthToken
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		out, err = s.storeAPIKeyTx(ctx, tx, orgID, token)
		return err
	})

	if errors.Is(err, errAPIKeyTaken) {
		// the failed insert aborted tx, read the winner's commit
		s.logger.Debug("organization api key stored concurrently", "organization_id", orgID)
		return s.repo.OrganizationTokens().FindValid(ctx, orgID, token)
	}

	if err != nil {
		return nil, err
	}

	return out, nil
}

// CreateOrgAPITokenTx mints and stores an API key inside tx. Encoding is
// deterministic, so a second call within the same second returns the
// record already stored for that token.
func (s *OrgTokenService) CreateOrgAPITokenTx(ctx context.Context, tx bun.IDB, organizationID uuid.UUID) (*OrganizationAuthToken, error) {
	token, err := s.encodeAPIKey(organizationID)
	if err != nil {
		return nil, err
	}
	return s.storeAPIKeyTx(ctx, tx, organizationID, token)
}

func (s *OrgTokenService) encodeAPIKey(organizationID uuid.UUID) (string, error) {
	return s.tokens.Encode(s.tokens.NewAPIKeyClaims(organizationID.String(), s.now()))
}

func (s *OrgTokenService) storeAPIKeyTx(ctx context.Context, tx bun.IDB, organizationID uuid.UUID, token string) (*OrganizationAuthToken, error) {
	if _, err := s.repo.Organizations().FindByIDTx(ctx, tx, organizationID); err != nil {
		return nil, err
	}

	existing, err := s.repo.OrganizationTokens().FindValidTx(ctx, tx, organizationID, token)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrOrgAuthFailed) {
		return nil, err
	}

	record, err := s.repo.OrganizationTokens().CreateTx(ctx, tx, &OrganizationAuthToken{
		OrganizationID: organizationID,
		TokenType:      OrganizationAuthTokenTypeAPI,
		Token:          token,
		Valid:          true,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("created organization api key", "organization_id", organizationID)
	return record, nil
}

// ResolveAPIKey returns the organization an API key was issued for
func (s *OrgTokenService) ResolveAPIKey(ctx context.Context, apiKey string) (*Organization, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	claims, err := s.tokens.DecodeUnexpired(apiKey, s.now())
	if err != nil {
		s.logger.Debug("api key rejected", "error", err)
		return nil, ErrOrgAuthFailed
	}

	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return nil, ErrOrgAuthFailed
	}

	if _, err := s.repo.OrganizationTokens().FindValid(ctx, orgID, apiKey); err != nil {
		return nil, err
	}

	return s.repo.Organizations().FindByID(ctx, orgID)
}
