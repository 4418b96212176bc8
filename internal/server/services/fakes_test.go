package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/dbx"
	"github.com/dmitrijs2005/gophsync/internal/foldx"
	"github.com/dmitrijs2005/gophsync/internal/server/events"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/groups"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/groupusers"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/items"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/repomanager"
)

const (
	userA  = "1b0e9f7e-0d7a-4c1f-8d55-0a0c7d3b9a01"
	userB  = "1b0e9f7e-0d7a-4c1f-8d55-0a0c7d3b9a02"
	groupG = "6f1f3a4c-4d8e-4a57-b0cf-1c2d3e4f5a01"
	keyK   = "items-key-k"
	itemI  = "9c3e5d1a-7b2f-4e6d-8a9c-0b1d2e3f4a5b"
	itemJ  = "9c3e5d1a-7b2f-4e6d-8a9c-0b1d2e3f4a5c"
)

var errBoom = errors.New("boom")

// -------- test fakes --------

type fakeItemsRepo struct {
	items.Repository

	mu        sync.Mutex
	stored    map[string]*models.Item
	upserts   []*models.Item
	findErr   error
	upsertErr error

	all      foldx.Result[*models.Item]
	allErr   error
	lastQ    items.Query
	dates    foldx.Result[int64]
	payloads foldx.Result[models.IntegrityPayload]
	sizes    foldx.Result[models.ItemContentSizeDescriptor]
}

func newFakeItems(existing ...*models.Item) *fakeItemsRepo {
	f := &fakeItemsRepo{stored: map[string]*models.Item{}}
	for _, it := range existing {
		f.stored[it.UUID] = it
	}
	return f
}

func (f *fakeItemsRepo) FindByUUIDForUpdate(_ context.Context, itemUUID string) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	it, ok := f.stored[itemUUID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeItemsRepo) Upsert(_ context.Context, item *models.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *item
	f.stored[item.UUID] = &cp
	f.upserts = append(f.upserts, item)
	return nil
}

func (f *fakeItemsRepo) FindAll(_ context.Context, q items.Query) (foldx.Result[*models.Item], error) {
	f.lastQ = q
	return f.all, f.allErr
}

func (f *fakeItemsRepo) FindDatesForComputingIntegrityHash(context.Context, string) (foldx.Result[int64], error) {
	return f.dates, f.allErr
}

func (f *fakeItemsRepo) FindItemsForComputingIntegrityPayloads(context.Context, string) (foldx.Result[models.IntegrityPayload], error) {
	return f.payloads, f.allErr
}

func (f *fakeItemsRepo) FindContentSizeForComputingTransferLimit(_ context.Context, q items.Query) (foldx.Result[models.ItemContentSizeDescriptor], error) {
	f.lastQ = q
	return f.sizes, f.allErr
}

type fakeGroupsRepo struct {
	groups.Repository
	groups map[string]*models.Group
	err    error
}

func (f *fakeGroupsRepo) FindByUUID(_ context.Context, groupUUID string) (*models.Group, error) {
	if f.err != nil {
		return nil, f.err
	}
	g, ok := f.groups[groupUUID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return g, nil
}

type fakeGroupUsersRepo struct {
	groupusers.Repository
	members map[string]models.Permission
}

func (f *fakeGroupUsersRepo) FindByUserAndGroup(_ context.Context, userUUID, groupUUID string) (*models.GroupUser, error) {
	p, ok := f.members[userUUID+"/"+groupUUID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.GroupUser{UUID: "m-" + userUUID, GroupUUID: groupUUID, UserUUID: userUUID, Permission: p}, nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	items      *fakeItemsRepo
	groups     *fakeGroupsRepo
	groupUsers *fakeGroupUsersRepo
}

func (m *fakeRepoManager) Items(dbx.DBTX) items.Repository           { return m.items }
func (m *fakeRepoManager) Groups(dbx.DBTX) groups.Repository         { return m.groups }
func (m *fakeRepoManager) GroupUsers(dbx.DBTX) groupusers.Repository { return m.groupUsers }

func newRepoManager(it *fakeItemsRepo) *fakeRepoManager {
	return &fakeRepoManager{
		items:      it,
		groups:     &fakeGroupsRepo{groups: map[string]*models.Group{groupG: {UUID: groupG, UserUUID: userA, SpecifiedItemsKeyUUID: keyK}}},
		groupUsers: &fakeGroupUsersRepo{members: map[string]models.Permission{}},
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.ItemRevisionRequested
	err    error
}

func (f *fakePublisher) PublishItemRevisionRequested(_ context.Context, e events.ItemRevisionRequested) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func strp(s string) *string { return &s }
