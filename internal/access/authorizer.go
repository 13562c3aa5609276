package access

import (
	"context"
	"errors"

	"stablehub/internal/shared/apperror"

	"github.com/google/uuid"
)

// Authorizer is the single authorization oracle shared by every handler.
type Authorizer interface {
	HasStableAccess(ctx context.Context, stableID uuid.UUID, actor Actor) (bool, error)
	HasStableManagementAccess(ctx context.Context, stableID uuid.UUID, actor Actor) (bool, error)
}

// MembershipAuthorizer grants access from stable membership. System admins
// pass every check.
type MembershipAuthorizer struct {
	members MembershipRepository
}

func NewMembershipAuthorizer(members MembershipRepository) *MembershipAuthorizer {
	return &MembershipAuthorizer{members: members}
}

func (a *MembershipAuthorizer) HasStableAccess(ctx context.Context, stableID uuid.UUID, actor Actor) (bool, error) {
	role, err := a.role(ctx, stableID, actor)
	if err != nil {
		return false, err
	}
	return role != "", nil
}

func (a *MembershipAuthorizer) HasStableManagementAccess(ctx context.Context, stableID uuid.UUID, actor Actor) (bool, error) {
	role, err := a.role(ctx, stableID, actor)
	if err != nil {
		return false, err
	}
	return role.CanManage(), nil
}

func (a *MembershipAuthorizer) role(ctx context.Context, stableID uuid.UUID, actor Actor) (MemberRole, error) {
	if actor.IsAdmin() {
		return MemberRoleOwner, nil
	}
	if actor.ID == uuid.Nil {
		return "", nil
	}
	m, err := a.members.FindMembership(ctx, stableID, actor.ID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return "", nil
		}
		return "", err
	}
	return m.Role, nil
}

// RequireStableAccess turns a negative decision into a FORBIDDEN error.
func RequireStableAccess(ctx context.Context, authz Authorizer, stableID uuid.UUID, actor Actor) error {
	ok, err := authz.HasStableAccess(ctx, stableID, actor)
	if err != nil {
		return apperror.Infrastructure("failed to resolve stable access", err)
	}
	if !ok {
		return apperror.Forbidden("you do not have access to this stable")
	}
	return nil
}

// RequireStableManagement turns a negative decision into a FORBIDDEN error.
func RequireStableManagement(ctx context.Context, authz Authorizer, stableID uuid.UUID, actor Actor) error {
	ok, err := authz.HasStableManagementAccess(ctx, stableID, actor)
	if err != nil {
		return apperror.Infrastructure("failed to resolve stable management access", err)
	}
	if !ok {
		return apperror.Forbidden("stable management rights are required")
	}
	return nil
}
