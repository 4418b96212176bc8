package saverules

import (
	"context"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
)

const (
	userA = "1b0e9f7e-0d7a-4c1f-8d55-0a0c7d3b9a01"
	userB = "1b0e9f7e-0d7a-4c1f-8d55-0a0c7d3b9a02"

	groupG  = "6f1f3a4c-4d8e-4a57-b0cf-1c2d3e4f5a01"
	groupG2 = "6f1f3a4c-4d8e-4a57-b0cf-1c2d3e4f5a02"

	keyK  = "items-key-k"
	keyK2 = "items-key-k2"

	itemI = "9c3e5d1a-7b2f-4e6d-8a9c-0b1d2e3f4a5b"
)

type fakeGroups struct {
	groups map[string]*models.Group
	err    error
	calls  int
}

func (f *fakeGroups) FindByUUID(_ context.Context, groupUUID string) (*models.Group, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	g, ok := f.groups[groupUUID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return g, nil
}

type fakePermissions struct {
	perms map[string]models.Permission
	err   error
	calls int
}

func (f *fakePermissions) Resolve(_ context.Context, userUUID, groupUUID string) (models.Permission, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	p, ok := f.perms[userUUID+"/"+groupUUID]
	return p, ok, nil
}

func newGroups() *fakeGroups {
	return &fakeGroups{groups: map[string]*models.Group{
		groupG:  {UUID: groupG, UserUUID: userA, SpecifiedItemsKeyUUID: keyK},
		groupG2: {UUID: groupG2, UserUUID: userA, SpecifiedItemsKeyUUID: keyK2},
	}}
}

func member(user, group string, p models.Permission) *fakePermissions {
	return &fakePermissions{perms: map[string]models.Permission{user + "/" + group: p}}
}

func strp(s string) *string { return &s }
