package auth

import (
	"time"

	"github.com/google/uuid"
)

// UserIdentity is the resolved view of a user together with the ids of the
// organizations it belongs to
type UserIdentity struct {
	ID            uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	ModifiedAt    time.Time `json:"modified_at"`
	Organizations []string  `json:"organizations"`
}

// NewUserIdentity builds an identity from a user and its memberships
func NewUserIdentity(user *User, memberships []*UserOrganization) *UserIdentity {
	if user == nil {
		return nil
	}

	orgs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		orgs = append(orgs, m.OrganizationID.String())
	}

	return &UserIdentity{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		IsActive:      user.IsActive,
		CreatedAt:     user.CreatedAt,
		ModifiedAt:    user.ModifiedAt,
		Organizations: orgs,
	}
}

// BelongsTo reports whether the identity is a member of organizationID
func (i *UserIdentity) BelongsTo(organizationID string) bool {
	if i == nil {
		return false
	}
	for _, id := range i.Organizations {
		if id == organizationID {
			return true
		}
	}
	return false
}
