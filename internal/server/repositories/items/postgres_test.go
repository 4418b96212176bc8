package items

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/foldx"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	item1 = "0f8fad5b-d9cb-469f-a165-70867728950e"
	item2 = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	item3 = "3b241101-e2bb-4255-8caf-4136c566a962"
	user1 = "16fd2706-8baf-433b-82eb-8c7fada847da"
)

var columns = []string{
	"uuid", "user_uuid", "group_uuid", "content_type", "items_key_id", "content", "content_size",
	"enc_item_key", "auth_hash", "duplicate_of", "deleted",
	"created_at_timestamp", "updated_at_timestamp", "created_at", "updated_at",
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var stamp = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestFindByUUID_MapsNullableColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).AddRow(
		item1, user1, nil, "Note", "key-1", "004:abc", nil,
		"eik", nil, nil, false,
		int64(100), int64(200), stamp, stamp,
	)
	mock.ExpectQuery(`SELECT .* FROM items WHERE uuid = \$1$`).WithArgs(item1).WillReturnRows(rows)

	got, err := repo.FindByUUID(context.Background(), item1)
	require.NoError(t, err)
	assert.Equal(t, &models.Item{
		UUID:               item1,
		UserUUID:           user1,
		ContentType:        models.ContentTypeNote,
		ItemsKeyID:         strp("key-1"),
		Content:            "004:abc",
		EncItemKey:         "eik",
		CreatedAtTimestamp: 100,
		UpdatedAtTimestamp: 200,
		CreatedAt:          stamp,
		UpdatedAt:          stamp,
	}, got)
	assert.False(t, got.HasGroup())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUUID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM items WHERE uuid = \$1`).WithArgs(item1).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUUID(context.Background(), item1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFindByUUID_UnmappableRowIsAnError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).AddRow(
		item1, "not-a-uuid", nil, "Note", nil, nil, nil,
		nil, nil, nil, false,
		int64(1), int64(2), stamp, stamp,
	)
	mock.ExpectQuery(`SELECT .* FROM items WHERE uuid = \$1`).WithArgs(item1).WillReturnRows(rows)

	_, err := repo.FindByUUID(context.Background(), item1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
	assert.Contains(t, err.Error(), "malformed user uuid")
}

func TestFindByUUIDForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM items WHERE uuid = \$1 FOR UPDATE`).WithArgs(item1).
		WillReturnError(errors.New("db is down"))

	_, err := repo.FindByUUIDForUpdate(context.Background(), item1)
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db is down`, err.Error())
}

func TestFindAll_SkipsUnmappableRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).
		AddRow(item1, user1, nil, "Note", nil, nil, int64(3), nil, nil, nil, false, int64(1), int64(10), stamp, stamp).
		AddRow("broken", user1, nil, "Note", nil, nil, nil, nil, nil, nil, false, int64(1), int64(20), stamp, stamp).
		AddRow(item2, user1, nil, "Tag", nil, nil, nil, nil, nil, nil, false, int64(1), nil, stamp, stamp).
		AddRow(item3, user1, "g1", "Note", nil, nil, nil, nil, nil, nil, true, int64(1), int64(30), stamp, stamp)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM items WHERE user_uuid = $1 ORDER BY updated_at_timestamp ASC`)).
		WithArgs(user1).WillReturnRows(rows)

	res, err := repo.FindAll(context.Background(), Query{UserUUID: user1, SortBy: SortByUpdatedAtTimestamp})
	require.NoError(t, err)

	require.Len(t, res.Values, 2)
	assert.Equal(t, item1, res.Values[0].UUID)
	assert.Equal(t, int64(3), res.Values[0].ContentSize)
	assert.Equal(t, item3, res.Values[1].UUID)
	assert.True(t, res.Values[1].HasGroup())

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "broken", res.Skipped[0].Key)
	assert.Equal(t, item2, res.Skipped[1].Key)
	assert.Equal(t, "missing timestamp", res.Skipped[1].Reason)
}

func TestFindAll_InvalidQueryNeverHitsTheDatabase(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	_, err := repo.FindAll(context.Background(), Query{SortBy: "password"})
	assert.ErrorIs(t, err, common.ErrPrecondition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAll(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM items WHERE user_uuid = $1`)).
		WithArgs(user1).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	n, err := repo.CountAll(context.Background(), Query{UserUUID: user1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func integrityRowsMock() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"uuid", "updated_at_timestamp", "content_type"}).
		AddRow(item1, int64(100), "Note").
		AddRow(item2, nil, "Note").
		AddRow("zzz", int64(300), "Tag").
		AddRow(item3, int64(200), "Tag")
}

func TestFindDatesForComputingIntegrityHash_SortsDescendingAndSkips(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT uuid, updated_at_timestamp, content_type FROM items\s+WHERE user_uuid = \$1 AND deleted = false`).
		WithArgs(user1).WillReturnRows(integrityRowsMock())

	res, err := repo.FindDatesForComputingIntegrityHash(context.Background(), user1)
	require.NoError(t, err)
	assert.Equal(t, []int64{200, 100}, res.Values)
	assert.Equal(t, []string{item2, "zzz"}, skippedKeys(res.Skipped))
}

func TestFindItemsForComputingIntegrityPayloads(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM items\s+WHERE user_uuid = \$1 AND deleted = false`).
		WithArgs(user1).WillReturnRows(integrityRowsMock())

	res, err := repo.FindItemsForComputingIntegrityPayloads(context.Background(), user1)
	require.NoError(t, err)
	assert.Equal(t, []models.IntegrityPayload{
		{UUID: item3, UpdatedAtTimestamp: 200, ContentType: models.ContentTypeTag},
		{UUID: item1, UpdatedAtTimestamp: 100, ContentType: models.ContentTypeNote},
	}, res.Values)
	assert.Len(t, res.Skipped, 2)
}

func TestFindContentSizeForComputingTransferLimit(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"uuid", "content_size"}).
		AddRow(item1, int64(10)).
		AddRow(item2, nil).
		AddRow("bad", int64(5)).
		AddRow(item3, int64(-1))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT uuid, content_size FROM items WHERE user_uuid = $1 AND deleted = $2`)).
		WithArgs(user1, false).WillReturnRows(rows)

	notDeleted := false
	res, err := repo.FindContentSizeForComputingTransferLimit(context.Background(), Query{UserUUID: user1, Deleted: &notDeleted})
	require.NoError(t, err)

	require.Len(t, res.Values, 2)
	assert.Equal(t, item1, res.Values[0].UUID())
	assert.Equal(t, int64(10), res.Values[0].ContentSize())
	assert.Equal(t, item2, res.Values[1].UUID())
	assert.Equal(t, int64(0), res.Values[1].ContentSize())
	assert.Equal(t, []string{"bad", item3}, skippedKeys(res.Skipped))
}

func TestFindContentSize_RowsError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"uuid", "content_size"}).
		AddRow(item1, int64(10)).
		RowError(0, errors.New("cursor lost"))
	mock.ExpectQuery(`SELECT uuid, content_size FROM items`).WillReturnRows(rows)

	_, err := repo.FindContentSizeForComputingTransferLimit(context.Background(), Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cursor lost")
}

var upsertRe = `INSERT INTO items .* ON CONFLICT \(uuid\)\s+DO UPDATE SET`

func TestUpsert(t *testing.T) {
	item := &models.Item{
		UUID: item1, UserUUID: user1, GroupUUID: strp("g1"), ContentType: models.ContentTypeNote,
		ItemsKeyID: strp("k1"), Content: "c", ContentSize: 1,
		CreatedAtTimestamp: 1, UpdatedAtTimestamp: 2, CreatedAt: stamp, UpdatedAt: stamp,
	}
	args := []driver.Value{item1, user1, "g1", "Note", "k1", "c", int64(1), nil, nil, nil, false, int64(1), int64(2), stamp, stamp}

	tests := []struct {
		name    string
		result  sql.Result
		err     error
		wantErr string
	}{
		{name: "ok", result: sqlmock.NewResult(0, 1)},
		{name: "exec error", err: errors.New("db is down"), wantErr: "db error: db is down"},
		{name: "rows affected error", result: sqlmock.NewErrorResult(errors.New("rows-err")), wantErr: "rows affected error: rows-err"},
		{name: "unexpected rows", result: sqlmock.NewResult(0, 2), wantErr: "unexpected rows affected: 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			exp := mock.ExpectExec(upsertRe).WithArgs(args...)
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := repo.Upsert(context.Background(), item)
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUpdateContentSize(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE items SET content_size = \$1 WHERE uuid = \$2`).
		WithArgs(int64(64), item1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE items SET content_size`).
		WithArgs(int64(64), item2).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateContentSize(context.Background(), item1, 64))
	assert.ErrorIs(t, repo.UpdateContentSize(context.Background(), item2, 64), common.ErrorNotFound)
}

func TestMarkItemsAsDeleted(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE items SET deleted = true, content = NULL, enc_item_key = NULL, auth_hash = NULL, content_size = 0, updated_at_timestamp = $1 WHERE uuid IN ($2, $3)`)).
		WithArgs(int64(999), item1, item2).WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.MarkItemsAsDeleted(context.Background(), []string{item1, item2}, 999))
	require.NoError(t, repo.MarkItemsAsDeleted(context.Background(), nil, 999))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveAndDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM items WHERE uuid = \$1`).WithArgs(item1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM items WHERE user_uuid = \$1 AND group_uuid IS NULL`).
		WithArgs(user1).WillReturnError(errors.New("boom"))

	require.NoError(t, repo.RemoveByUUID(context.Background(), item1))
	assert.EqualError(t, repo.DeleteByUserUUIDAndNotInGroup(context.Background(), user1), "db error: boom")
}

func skippedKeys(s []foldx.Skip) []string {
	keys := make([]string, len(s))
	for i, sk := range s {
		keys[i] = sk.Key
	}
	return keys
}

func strp(s string) *string { return &s }
