package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenTypeAPIKey is the token_type returned by login
const TokenTypeAPIKey = "api_key"

// TokenTypeBearer is the token_type of minted access tokens
const TokenTypeBearer = "bearer"

// AuthService implements registration, login and identity resolution
// on top of the repositories, the token codec and the org token service.
type AuthService struct {
	config    Config
	repo      RepositoryManager
	tokens    *TokenService
	orgTokens *OrgTokenService
	hasher    *PasswordHasher
	provider  *UserProvider
	register  *RegisterUserHandler
	update    *UpdateUserHandler
	metrics   *Metrics
	logger    Logger
	now       func() time.Time
}

var _ Authenticator = (*AuthService)(nil)
var _ OrganizationAuthenticator = (*AuthService)(nil)

// NewAuthService wires the service from config and repositories
func NewAuthService(cfg Config, repo RepositoryManager) (*AuthService, error) {
	if cfg == nil {
		return nil, errors.New("config is required", errors.CategoryBadInput)
	}

	if repo == nil {
		return nil, errors.New("repository manager is required", errors.CategoryBadInput)
	}

	if err := repo.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid repository manager")
	}

	logger := Logger(defLogger{})

	tokens, err := NewTokenService(cfg, logger)
	if err != nil {
		return nil, err
	}

	hasher := NewPasswordHasher(cfg.GetPasswordCost())

	s := &AuthService{
		config:    cfg,
		repo:      repo,
		tokens:    tokens,
		orgTokens: NewOrgTokenService(repo, tokens),
		hasher:    hasher,
		provider:  NewUserProvider(repo.Users(), hasher),
		register:  NewRegisterUserHandler(repo).WithHasher(hasher),
		update:    NewUpdateUserHandler(repo).WithHasher(hasher),
		logger:    logger,
		now:       utcNow,
	}

	return s, nil
}

// WithLogger sets the logger on the service and its collaborators
func (s *AuthService) WithLogger(l Logger) *AuthService {
	if l == nil {
		return s
	}
	s.logger = l
	s.tokens.logger = l
	s.orgTokens.WithLogger(l)
	s.provider.WithLogger(l)
	s.register.WithLogger(l)
	s.update.WithLogger(l)
	return s
}

// WithMetrics records outcomes and hash timings on m
func (s *AuthService) WithMetrics(m *Metrics) *AuthService {
	s.metrics = m
	s.hasher.WithMetrics(m)
	return s
}

// WithClock overrides the time source
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now == nil {
		return s
	}
	s.now = now
	s.orgTokens.WithClock(now)
	return s
}

// Tokens returns the token codec
func (s *AuthService) Tokens() *TokenService {
	return s.tokens
}

// Register creates a user with its default organization
func (s *AuthService) Register(ctx context.Context, msg RegisterUserMessage) (*UserIdentity, error) {
	msg.UseHashid = msg.UseHashid || s.config.GetUseHashidUserIDs()
	identity, err := s.register.Execute(ctx, msg)
	s.metrics.recordRegister(err)
	return identity, err
}

// UpdateUser applies optional profile changes to the user
func (s *AuthService) UpdateUser(ctx context.Context, userID uuid.UUID, msg UpdateUserMessage) (*UserIdentity, error) {
	return s.update.Execute(ctx, userID, msg)
}

// Login checks credentials and returns an API key for the user's first organization
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	res, err := s.login(ctx, email, password)
	s.metrics.recordLogin(err)
	return res, err
}

func (s *AuthService) login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.provider.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	memberships, err := s.repo.Memberships().ListForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if len(memberships) == 0 {
		s.logger.Error("user has no organizations", "user_id", user.ID)
		return nil, ErrNoOrganization
	}

	token, err := s.orgTokens.CreateOrgAPIToken(ctx, memberships[0].OrganizationID.String())
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "organization_id", memberships[0].OrganizationID)

	return &LoginResult{
		APIKey:    token.Token,
		TokenType: TokenTypeAPIKey,
	}, nil
}

// ResolveBearer resolves an Authorization header value to the user it was issued for.
// Activity is not checked here, see RequireActive.
func (s *AuthService) ResolveBearer(ctx context.Context, authorization string) (*UserIdentity, error) {
	identity, err := s.resolveBearer(ctx, authorization)
	s.metrics.recordResolution(CredentialBearer, err)
	return identity, err
}

func (s *AuthService) resolveBearer(ctx context.Context, authorization string) (*UserIdentity, error) {
	token, err := ParseAuthorization(authorization, s.config.GetAuthScheme())
	if err != nil {
		return nil, err
	}

	claims, err := s.tokens.DecodeUnexpired(token, s.now())
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrUserNotFound
	}

	return s.Identity(ctx, userID)
}

// ParseAuthorization splits "<scheme> <token>" and returns the token.
// The scheme match is case insensitive.
func ParseAuthorization(authorization, scheme string) (string, error) {
	fields := strings.Fields(authorization)
	if len(fields) == 0 {
		return "", ErrNotAuthenticated
	}

	if scheme == "" {
		scheme = DefaultAuthScheme
	}

	if len(fields) != 2 || !strings.EqualFold(fields[0], scheme) {
		return "", ErrInvalidScheme
	}

	return fields[1], nil
}

// RequireActive rejects identities of deactivated users
func (s *AuthService) RequireActive(identity *UserIdentity) error {
	if identity == nil {
		return ErrNotAuthenticated
	}
	if !identity.IsActive {
		return ErrInactiveUserAccess
	}
	return nil
}

// AuthorizeOrganization returns the organization if identity is one of its members
func (s *AuthService) AuthorizeOrganization(ctx context.Context, identity *UserIdentity, organizationID string) (*Organization, error) {
	if identity == nil {
		return nil, ErrNotAuthenticated
	}

	orgID, err := uuid.Parse(organizationID)
	if err != nil || !identity.BelongsTo(orgID.String()) {
		return nil, ErrOrgNotAuthorized
	}

	return s.repo.Organizations().FindByID(ctx, orgID)
}

// CreateOrgAPIToken mints and stores an API key for the organization
func (s *AuthService) CreateOrgAPIToken(ctx context.Context, organizationID string) (*OrganizationAuthToken, error) {
	return s.orgTokens.CreateOrgAPIToken(ctx, organizationID)
}

// ResolveAPIKey returns the organization an API key was issued for
func (s *AuthService) ResolveAPIKey(ctx context.Context, apiKey string) (*Organization, error) {
	org, err := s.orgTokens.ResolveAPIKey(ctx, apiKey)
	s.metrics.recordResolution(CredentialAPIKey, err)
	return org, err
}

// CurrentUserForOrganization returns the earliest admin of org with its memberships
func (s *AuthService) CurrentUserForOrganization(ctx context.Context, org *Organization) (*UserIdentity, error) {
	if org == nil {
		return nil, ErrOrganizationNotFound
	}

	user, err := s.repo.Users().FindOrganizationAdmin(ctx, org.ID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.repo.Memberships().ListForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return NewUserIdentity(user, memberships), nil
}

// Identity loads a user with its memberships
func (s *AuthService) Identity(ctx context.Context, userID uuid.UUID) (*UserIdentity, error) {
	user, err := s.repo.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.repo.Memberships().ListForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return NewUserIdentity(user, memberships), nil
}

// IssueAccessToken mints a bearer token for an active member of the organization
func (s *AuthService) IssueAccessToken(ctx context.Context, userID, organizationID string) (*AccessToken, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	identity, err := s.Identity(ctx, uid)
	if err != nil {
		return nil, err
	}

	if err := s.RequireActive(identity); err != nil {
		return nil, err
	}

	orgID, err := uuid.Parse(organizationID)
	if err != nil || !identity.BelongsTo(orgID.String()) {
		return nil, ErrOrgNotAuthorized
	}

	claims := s.tokens.NewAccessClaims(uid.String(), orgID.String(), s.now())
	token, err := s.tokens.Encode(claims)
	if err != nil {
		return nil, err
	}

	return &AccessToken{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   claims.Expires(),
	}, nil
}
