package items

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_SelectSQL(t *testing.T) {
	deleted := false
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := after.Add(24 * time.Hour)

	tests := []struct {
		name     string
		q        Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filters",
			q:       Query{},
			wantSQL: "SELECT uuid FROM items",
		},
		{
			name:     "user and deleted",
			q:        Query{UserUUID: "u1", Deleted: &deleted},
			wantSQL:  "SELECT uuid FROM items WHERE user_uuid = $1 AND deleted = $2",
			wantArgs: []any{"u1", false},
		},
		{
			name:     "uuid set and one content type",
			q:        Query{UUIDs: []string{"a", "b"}, ContentTypes: []models.ContentType{models.ContentTypeNote}},
			wantSQL:  "SELECT uuid FROM items WHERE uuid IN ($1, $2) AND content_type = $3",
			wantArgs: []any{"a", "b", "Note"},
		},
		{
			name:     "several content types",
			q:        Query{ContentTypes: []models.ContentType{models.ContentTypeNote, models.ContentTypeTag}},
			wantSQL:  "SELECT uuid FROM items WHERE content_type IN ($1, $2)",
			wantArgs: []any{"Note", "Tag"},
		},
		{
			name:     "sync watermark",
			q:        Query{UserUUID: "u1", LastSyncTime: 42, SyncTimeComparison: NewerThan},
			wantSQL:  "SELECT uuid FROM items WHERE user_uuid = $1 AND updated_at_timestamp > $2",
			wantArgs: []any{"u1", int64(42)},
		},
		{
			name:    "watermark without comparison is ignored",
			q:       Query{LastSyncTime: 42},
			wantSQL: "SELECT uuid FROM items",
		},
		{
			name:     "created range",
			q:        Query{CreatedAfter: after, CreatedBefore: before},
			wantSQL:  "SELECT uuid FROM items WHERE created_at >= $1 AND created_at <= $2",
			wantArgs: []any{after, before},
		},
		{
			name:     "sort and paging",
			q:        Query{UserUUID: "u1", SortBy: SortByUpdatedAtTimestamp, SortOrder: Descending, Limit: 10, Offset: 20},
			wantSQL:  "SELECT uuid FROM items WHERE user_uuid = $1 ORDER BY updated_at_timestamp DESC LIMIT $2 OFFSET $3",
			wantArgs: []any{"u1", 10, 20},
		},
		{
			name:    "sort defaults to ascending",
			q:       Query{SortBy: SortByUUID},
			wantSQL: "SELECT uuid FROM items ORDER BY uuid ASC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.q.selectSQL("uuid")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestQuery_CountSQLIgnoresPaging(t *testing.T) {
	q := Query{UserUUID: "u1", SortBy: SortByUUID, Limit: 5, Offset: 5}

	sql, args, err := q.countSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM items WHERE user_uuid = $1", sql)
	assert.Equal(t, []any{"u1"}, args)
}

func TestQuery_ValidateRejectsUnsafeKnobs(t *testing.T) {
	tests := []struct {
		name string
		q    Query
	}{
		{name: "sort field", q: Query{SortBy: "content; DROP TABLE items"}},
		{name: "sort order", q: Query{SortBy: SortByUUID, SortOrder: "SIDEWAYS"}},
		{name: "comparison", q: Query{LastSyncTime: 1, SyncTimeComparison: ">="}},
		{name: "negative limit", q: Query{Limit: -1}},
		{name: "half-open range", q: Query{CreatedAfter: time.Now()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.q.selectSQL("uuid")
			assert.ErrorIs(t, err, common.ErrPrecondition)
			_, _, err = tt.q.countSQL()
			assert.ErrorIs(t, err, common.ErrPrecondition)
		})
	}
}
