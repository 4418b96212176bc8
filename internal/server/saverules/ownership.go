package saverules

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
)

// GroupFinder loads a group record. It returns common.ErrorNotFound when the
// group does not exist.
type GroupFinder interface {
	FindByUUID(ctx context.Context, groupUUID string) (*models.Group, error)
}

// PermissionResolver resolves the current membership of a user in a group.
// found is false when the user is not a member.
type PermissionResolver interface {
	Resolve(ctx context.Context, userUUID, groupUUID string) (perm models.Permission, found bool, err error)
}

// OwnershipFilter decides whether the acting user may write the item at all,
// combining direct ownership, group membership and the group items key.
type OwnershipFilter struct {
	groups      GroupFinder
	permissions PermissionResolver
}

func NewOwnershipFilter(groups GroupFinder, permissions PermissionResolver) *OwnershipFilter {
	return &OwnershipFilter{groups: groups, permissions: permissions}
}

func (f *OwnershipFilter) Name() string { return "ownership" }

func (f *OwnershipFilter) Check(ctx context.Context, in Input) (Verdict, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	belongsToDifferentUser := in.ExistingItem != nil && in.ExistingItem.UserUUID != in.UserUUID

	groupUUID := groupInvolved(in)
	if groupUUID == "" {
		if belongsToDifferentUser {
			return fail(f.Name(), in, models.ConflictUUID)
		}
		return pass()
	}

	perm, found, err := f.permissions.Resolve(ctx, in.UserUUID, groupUUID)
	if err != nil {
		return nil, fmt.Errorf("resolve permission in group %s: %w", groupUUID, err)
	}
	if !found {
		return fail(f.Name(), in, models.ConflictUUID)
	}

	// Detaching from the group or deleting is decided here, ahead of the
	// read-only check: an owner keeps the right to pull their own item out
	// of a group even after being demoted to read.
	removingFromGroup := in.ExistingItem != nil && in.ExistingItem.HasGroup() && !in.ItemHash.HasGroup()
	if removingFromGroup || in.ItemHash.Deleted {
		if belongsToDifferentUser && !perm.IsAdmin() {
			return fail(f.Name(), in, models.ConflictReadOnly)
		}
		return pass()
	}

	if !perm.CanWrite() {
		return fail(f.Name(), in, models.ConflictReadOnly)
	}

	if in.ItemHash.ContentType.IsSharedItemsKey() {
		if !perm.IsAdmin() {
			return fail(f.Name(), in, models.ConflictReadOnly)
		}
		return pass()
	}

	return f.checkItemsKey(ctx, in)
}

// checkItemsKey requires the item to be encrypted with the items key the
// target group currently specifies.
func (f *OwnershipFilter) checkItemsKey(ctx context.Context, in Input) (Verdict, error) {
	target := *in.ItemHash.GroupUUID

	group, err := f.groups.FindByUUID(ctx, target)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fail(f.Name(), in, models.ConflictUUID)
		}
		return nil, fmt.Errorf("find group %s: %w", target, err)
	}

	if in.ItemHash.ItemsKeyID == nil || *in.ItemHash.ItemsKeyID != group.SpecifiedItemsKeyUUID {
		return fail(f.Name(), in, models.ConflictContent)
	}

	return pass()
}

// groupInvolved prefers the stored group over the incoming one, so a client
// cannot escape a group's rules by omitting group_uuid.
func groupInvolved(in Input) string {
	if in.ExistingItem != nil && in.ExistingItem.HasGroup() {
		return *in.ExistingItem.GroupUUID
	}
	if in.ItemHash.HasGroup() {
		return *in.ItemHash.GroupUUID
	}
	return ""
}
