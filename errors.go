package auth

import (
	stderrors "errors"
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeInactiveUser         = "INACTIVE_USER"
	TextCodeNoOrganization       = "NO_ORGANIZATION"
	TextCodeNotAuthenticated     = "NOT_AUTHENTICATED"
	TextCodeInvalidScheme        = "INVALID_AUTH_SCHEME"
	TextCodeInvalidToken         = "TOKEN_INVALID"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeUserNotFound         = "USER_NOT_FOUND"
	TextCodeOrganizationNotFound = "ORGANIZATION_NOT_FOUND"
	TextCodeOrgNotAuthorized     = "ORGANIZATION_NOT_AUTHORIZED"
	TextCodeMissingAPIKey        = "API_KEY_MISSING"
	TextCodeOrgAuthFailed        = "ORGANIZATION_AUTH_FAILED"
	TextCodeUserRefetchFailed    = "USER_REFETCH_FAILED"
	TextCodeEmptyPassword        = "EMPTY_PASSWORD"
	TextCodePasswordMismatch     = "PASSWORD_MISMATCH"
)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = errors.New("password does not match hash", errors.CategoryAuth).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateEmail is returned when registering or updating to an email already in use
var ErrDuplicateEmail = errors.New("Email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCredentials collapses unknown email and wrong password into one answer
var ErrInvalidCredentials = errors.New("Incorrect email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrInactiveUser is returned by login for deactivated accounts
var ErrInactiveUser = errors.New("Inactive user", errors.CategoryAuth).
	WithTextCode(TextCodeInactiveUser).
	WithCode(errors.CodeUnauthorized)

// ErrInactiveUserAccess is returned when an authenticated but inactive user
// tries to reach a protected resource
var ErrInactiveUserAccess = errors.New("Inactive user", errors.CategoryAuthz).
	WithTextCode(TextCodeInactiveUser).
	WithCode(errors.CodeForbidden)

// ErrNoOrganization signals a user without memberships, which registration
// never produces
var ErrNoOrganization = errors.New("User has no organizations", errors.CategoryInternal).
	WithTextCode(TextCodeNoOrganization).
	WithCode(http.StatusInternalServerError)

// ErrUserRefetchFailed is returned when a freshly registered user can not be read back
var ErrUserRefetchFailed = errors.New("Failed to retrieve user after creation", errors.CategoryInternal).
	WithTextCode(TextCodeUserRefetchFailed).
	WithCode(http.StatusInternalServerError)

// ErrNotAuthenticated is returned when no credentials were sent
var ErrNotAuthenticated = errors.New("Not authenticated", errors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidScheme is returned for Authorization headers that are not "Bearer <token>"
var ErrInvalidScheme = errors.New("Invalid authentication scheme", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidScheme).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidToken is returned for tokens with a bad signature, structure or claim set
var ErrInvalidToken = errors.New("Invalid token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a decoded token expiry is not in the future
var ErrTokenExpired = errors.New("Token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrUserNotFound is returned when a referenced user does not exist
var ErrUserNotFound = errors.New("User not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrOrganizationNotFound is returned when a referenced organization does not exist
var ErrOrganizationNotFound = errors.New("Organization not found", errors.CategoryNotFound).
	WithTextCode(TextCodeOrganizationNotFound).
	WithCode(errors.CodeNotFound)

// ErrOrgNotAuthorized is returned when a user is not a member of the requested organization
var ErrOrgNotAuthorized = errors.New("Not authorized to access this organization", errors.CategoryAuthz).
	WithTextCode(TextCodeOrgNotAuthorized).
	WithCode(errors.CodeForbidden)

// ErrMissingAPIKey is returned when an API key protected route gets no key
var ErrMissingAPIKey = errors.New("Missing API key", errors.CategoryAuth).
	WithTextCode(TextCodeMissingAPIKey).
	WithCode(errors.CodeUnauthorized)

// ErrOrgAuthFailed is returned for API keys that fail validation
var ErrOrgAuthFailed = errors.New("Could not validate credentials", errors.CategoryAuthz).
	WithTextCode(TextCodeOrgAuthFailed).
	WithCode(errors.CodeForbidden)

// IsTokenExpiredError reports whether err is ErrTokenExpired
func IsTokenExpiredError(err error) bool {
	return stderrors.Is(err, ErrTokenExpired)
}

// IsMalformedError reports whether err is ErrInvalidToken
func IsMalformedError(err error) bool {
	return stderrors.Is(err, ErrInvalidToken)
}

// HTTPStatus resolves the status code carried by a rich error, or 500
func HTTPStatus(err error) int {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Code >= 400 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}

// TextCode returns the text code of a rich error, if any
func TextCode(err error) string {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}
