// Package groups answers the one question the save rules ask about shared
// vaults: which role does a user hold in a group right now.
package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
)

// MembershipFinder is the part of the group users repository the
// authorizer needs.
type MembershipFinder interface {
	FindByUserAndGroup(ctx context.Context, userUUID, groupUUID string) (*models.GroupUser, error)
}

// Authorizer resolves permissions from the membership store on every call.
// Results are never cached: a revoked membership takes effect on the next
// write.
type Authorizer struct {
	members MembershipFinder
}

func NewAuthorizer(members MembershipFinder) *Authorizer {
	return &Authorizer{members: members}
}

// Resolve returns the permission of userUUID in groupUUID. found is false
// when there is no membership. A stored permission outside the known roles
// is reported as an error.
func (a *Authorizer) Resolve(ctx context.Context, userUUID, groupUUID string) (models.Permission, bool, error) {
	gu, err := a.members.FindByUserAndGroup(ctx, userUUID, groupUUID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find membership of %s in %s: %w", userUUID, groupUUID, err)
	}
	if !gu.Permission.Valid() {
		return "", false, fmt.Errorf("membership %s: unknown permission %q", gu.UUID, gu.Permission)
	}
	return gu.Permission, true, nil
}
