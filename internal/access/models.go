package access

import (
	"time"

	"stablehub/internal/users"

	"github.com/google/uuid"
)

// Actor is the authenticated caller as resolved by the auth middleware.
type Actor struct {
	ID          uuid.UUID  `json:"id"`
	Role        users.Role `json:"role"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == users.RoleAdmin
}

type MemberRole string

const (
	MemberRoleOwner   MemberRole = "owner"
	MemberRoleManager MemberRole = "manager"
	MemberRoleStaff   MemberRole = "staff"
	MemberRoleMember  MemberRole = "member"
)

// CanManage reports whether the role may approve, reject and override.
func (r MemberRole) CanManage() bool {
	return r == MemberRoleOwner || r == MemberRoleManager
}

func (r MemberRole) IsValid() bool {
	switch r {
	case MemberRoleOwner, MemberRoleManager, MemberRoleStaff, MemberRoleMember:
		return true
	}
	return false
}

type Stable struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"not null"`
	OwnerID   uuid.UUID `json:"ownerId" gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type StableMember struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	StableID  uuid.UUID  `json:"stableId" gorm:"type:uuid;not null;uniqueIndex:idx_stable_member"`
	UserID    uuid.UUID  `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_stable_member"`
	Role      MemberRole `json:"role" gorm:"not null;default:'member'"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (StableMember) TableName() string {
	return "stable_members"
}
