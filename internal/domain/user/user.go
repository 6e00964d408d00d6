package user

import (
	"errors"
	"time"
)

const (
	RoleTourist        = "TOURIST"
	RoleShopOwner      = "SHOP_OWNER"
	RoleCommunityAdmin = "COMMUNITY_ADMIN"
	RolePlatformAdmin  = "PLATFORM_ADMIN"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Firstname    string    `json:"firstname"`
	Lastname     string    `json:"lastname,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role"`
	CommunityID  *string   `json:"communityId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func IsValidRole(role string) bool {
	switch role {
	case RoleTourist, RoleShopOwner, RoleCommunityAdmin, RolePlatformAdmin:
		return true
	default:
		return false
	}
}

// IsAdminFor reports whether the user may moderate entities owned by the
// given community. Platform admins moderate everything.
func (u User) IsAdminFor(communityID string) bool {
	if u.Role == RolePlatformAdmin {
		return true
	}

	return u.Role == RoleCommunityAdmin && u.CommunityID != nil && *u.CommunityID == communityID
}
