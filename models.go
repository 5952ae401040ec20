package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OrganizationAuthTokenTypeAPI marks long lived organization API keys
const OrganizationAuthTokenTypeAPI = "api"

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"user_id"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	FirstName     string    `bun:"first_name,notnull" json:"first_name"`
	LastName      string    `bun:"last_name,notnull" json:"last_name"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	IsActive      bool      `bun:"is_active,notnull" json:"is_active"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	ModifiedAt    time.Time `bun:"modified_at,notnull" json:"modified_at"`
}

// Organization is the tenant model
type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:org"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"organization_id"`
	Name          string    `bun:"organization_name,notnull" json:"organization_name"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	ModifiedAt    time.Time `bun:"modified_at,notnull" json:"modified_at"`
}

// DefaultOrganizationName is the name given to the organization created at registration
func DefaultOrganizationName(firstName string) string {
	return firstName + "'s Organization"
}

// UserOrganization links a user to an organization
type UserOrganization struct {
	bun.BaseModel  `bun:"table:user_organizations,alias:uo"`
	UserID         uuid.UUID `bun:"user_id,pk,type:uuid" json:"user_id"`
	OrganizationID uuid.UUID `bun:"organization_id,pk,type:uuid" json:"organization_id"`
	IsAdmin        bool      `bun:"is_admin,notnull" json:"is_admin"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
}

// OrganizationAuthToken is a persisted organization API key
type OrganizationAuthToken struct {
	bun.BaseModel  `bun:"table:organization_auth_tokens,alias:oat"`
	ID             uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	OrganizationID uuid.UUID `bun:"organization_id,notnull,type:uuid" json:"organization_id"`
	TokenType      string    `bun:"token_type,notnull" json:"token_type"`
	Token          string    `bun:"token,notnull,unique" json:"token"`
	Valid          bool      `bun:"valid,notnull" json:"valid"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
	ModifiedAt     time.Time `bun:"modified_at,notnull" json:"modified_at"`
}

func utcNow() time.Time {
	return time.Now().UTC()
}
