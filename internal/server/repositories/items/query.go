package items

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
)

type SortField string

const (
	SortByUpdatedAtTimestamp SortField = "updated_at_timestamp"
	SortByCreatedAtTimestamp SortField = "created_at_timestamp"
	SortByCreatedAt          SortField = "created_at"
	SortByUUID               SortField = "uuid"
	SortByContentSize        SortField = "content_size"
)

var sortable = map[SortField]struct{}{
	SortByUpdatedAtTimestamp: {},
	SortByCreatedAtTimestamp: {},
	SortByCreatedAt:          {},
	SortByUUID:               {},
	SortByContentSize:        {},
}

type SortOrder string

const (
	Ascending  SortOrder = "ASC"
	Descending SortOrder = "DESC"
)

// Comparison is how updated_at_timestamp is compared with LastSyncTime.
type Comparison string

const (
	NewerThan Comparison = ">"
	OlderThan Comparison = "<"
)

// Query filters the item set. Zero values mean "no filter" for every knob.
type Query struct {
	UserUUID     string
	UUIDs        []string
	Deleted      *bool
	ContentTypes []models.ContentType

	// LastSyncTime is a watermark in microseconds, applied only together
	// with SyncTimeComparison.
	LastSyncTime       int64
	SyncTimeComparison Comparison

	CreatedAfter  time.Time
	CreatedBefore time.Time

	Offset int
	Limit  int

	SortBy    SortField
	SortOrder SortOrder
}

// Validate rejects knobs that cannot be turned into SQL safely.
func (q Query) Validate() error {
	if q.SortBy != "" {
		if _, ok := sortable[q.SortBy]; !ok {
			return fmt.Errorf("%w: unknown sort field %q", common.ErrPrecondition, q.SortBy)
		}
	}
	switch q.SortOrder {
	case "", Ascending, Descending:
	default:
		return fmt.Errorf("%w: unknown sort order %q", common.ErrPrecondition, q.SortOrder)
	}
	switch q.SyncTimeComparison {
	case "", NewerThan, OlderThan:
	default:
		return fmt.Errorf("%w: unknown sync time comparison %q", common.ErrPrecondition, q.SyncTimeComparison)
	}
	if q.Offset < 0 || q.Limit < 0 {
		return fmt.Errorf("%w: negative offset or limit", common.ErrPrecondition)
	}
	if q.CreatedAfter.IsZero() != q.CreatedBefore.IsZero() {
		return fmt.Errorf("%w: created range needs both bounds", common.ErrPrecondition)
	}
	return nil
}

type builder struct {
	conds []string
	args  []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) in(column string, values []string) {
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = b.arg(v)
	}
	b.conds = append(b.conds, column+" IN ("+strings.Join(ph, ", ")+")")
}

func (b *builder) where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

func (q Query) filter() *builder {
	b := &builder{}
	if q.UserUUID != "" {
		b.conds = append(b.conds, "user_uuid = "+b.arg(q.UserUUID))
	}
	if len(q.UUIDs) > 0 {
		b.in("uuid", q.UUIDs)
	}
	if q.Deleted != nil {
		b.conds = append(b.conds, "deleted = "+b.arg(*q.Deleted))
	}
	switch len(q.ContentTypes) {
	case 0:
	case 1:
		b.conds = append(b.conds, "content_type = "+b.arg(string(q.ContentTypes[0])))
	default:
		types := make([]string, len(q.ContentTypes))
		for i, t := range q.ContentTypes {
			types[i] = string(t)
		}
		b.in("content_type", types)
	}
	if q.LastSyncTime != 0 && q.SyncTimeComparison != "" {
		b.conds = append(b.conds, "updated_at_timestamp "+string(q.SyncTimeComparison)+" "+b.arg(q.LastSyncTime))
	}
	if !q.CreatedAfter.IsZero() {
		b.conds = append(b.conds, "created_at >= "+b.arg(q.CreatedAfter)+" AND created_at <= "+b.arg(q.CreatedBefore))
	}
	return b
}

// selectSQL renders a paged, ordered SELECT of columns.
func (q Query) selectSQL(columns string) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	b := q.filter()

	var sb strings.Builder
	sb.WriteString("SELECT " + columns + " FROM items")
	sb.WriteString(b.where())
	if q.SortBy != "" {
		order := q.SortOrder
		if order == "" {
			order = Ascending
		}
		sb.WriteString(" ORDER BY " + string(q.SortBy) + " " + string(order))
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + b.arg(q.Limit))
	}
	if q.Offset > 0 {
		sb.WriteString(" OFFSET " + b.arg(q.Offset))
	}
	return sb.String(), b.args, nil
}

// countSQL ignores ordering and paging.
func (q Query) countSQL() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	b := q.filter()
	return "SELECT COUNT(*) FROM items" + b.where(), b.args, nil
}
