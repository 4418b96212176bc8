// Package items provides the PostgreSQL item store: point lookups, filtered
// listings, integrity and transfer-limit projections, and the write side.
package items

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/dbx"
	"github.com/dmitrijs2005/gophsync/internal/foldx"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
	"github.com/google/uuid"
)

const itemColumns = `uuid, user_uuid, group_uuid, content_type, items_key_id, content, content_size,
	enc_item_key, auth_hash, duplicate_of, deleted,
	created_at_timestamp, updated_at_timestamp, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// itemRow is a row as stored; legacy rows may carry NULLs the domain type
// does not allow.
type itemRow struct {
	uuid               string
	userUUID           string
	groupUUID          sql.NullString
	contentType        sql.NullString
	itemsKeyID         sql.NullString
	content            sql.NullString
	contentSize        sql.NullInt64
	encItemKey         sql.NullString
	authHash           sql.NullString
	duplicateOf        sql.NullString
	deleted            bool
	createdAtTimestamp sql.NullInt64
	updatedAtTimestamp sql.NullInt64
	createdAt          time.Time
	updatedAt          time.Time
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItemRow(s scanner) (itemRow, error) {
	var r itemRow
	err := s.Scan(
		&r.uuid, &r.userUUID, &r.groupUUID, &r.contentType, &r.itemsKeyID, &r.content, &r.contentSize,
		&r.encItemKey, &r.authHash, &r.duplicateOf, &r.deleted,
		&r.createdAtTimestamp, &r.updatedAtTimestamp, &r.createdAt, &r.updatedAt,
	)
	return r, err
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toDomain(r itemRow) (*models.Item, error) {
	if _, err := uuid.Parse(r.uuid); err != nil {
		return nil, fmt.Errorf("malformed uuid: %w", err)
	}
	if _, err := uuid.Parse(r.userUUID); err != nil {
		return nil, fmt.Errorf("malformed user uuid: %w", err)
	}
	if !r.createdAtTimestamp.Valid || !r.updatedAtTimestamp.Valid {
		return nil, errors.New("missing timestamp")
	}
	return &models.Item{
		UUID:               r.uuid,
		UserUUID:           r.userUUID,
		GroupUUID:          nullableString(r.groupUUID),
		ContentType:        models.ContentType(r.contentType.String),
		ItemsKeyID:         nullableString(r.itemsKeyID),
		Content:            r.content.String,
		ContentSize:        r.contentSize.Int64,
		EncItemKey:         r.encItemKey.String,
		AuthHash:           r.authHash.String,
		DuplicateOf:        nullableString(r.duplicateOf),
		Deleted:            r.deleted,
		CreatedAtTimestamp: r.createdAtTimestamp.Int64,
		UpdatedAtTimestamp: r.updatedAtTimestamp.Int64,
		CreatedAt:          r.createdAt,
		UpdatedAt:          r.updatedAt,
	}, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query, itemUUID string) (*models.Item, error) {
	row, err := scanItemRow(r.db.QueryRowContext(ctx, query, itemUUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	item, err := toDomain(row)
	if err != nil {
		return nil, fmt.Errorf("map item %s: %w", itemUUID, err)
	}
	return item, nil
}

// FindByUUID returns common.ErrorNotFound when no row exists. A row that
// cannot be mapped is an error, never "not found".
func (r *PostgresRepository) FindByUUID(ctx context.Context, itemUUID string) (*models.Item, error) {
	return r.findOne(ctx, `SELECT `+itemColumns+` FROM items WHERE uuid = $1`, itemUUID)
}

// FindByUUIDForUpdate is FindByUUID with a row lock; use it inside a transaction.
func (r *PostgresRepository) FindByUUIDForUpdate(ctx context.Context, itemUUID string) (*models.Item, error) {
	return r.findOne(ctx, `SELECT `+itemColumns+` FROM items WHERE uuid = $1 FOR UPDATE`, itemUUID)
}

// FindAll returns the items matching q. Rows that fail mapping are skipped.
func (r *PostgresRepository) FindAll(ctx context.Context, q Query) (foldx.Result[*models.Item], error) {
	query, args, err := q.selectSQL(itemColumns)
	if err != nil {
		return foldx.Result[*models.Item]{}, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return foldx.Result[*models.Item]{}, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var raw []itemRow
	for rows.Next() {
		row, err := scanItemRow(rows)
		if err != nil {
			return foldx.Result[*models.Item]{}, fmt.Errorf("scan item: %w", err)
		}
		raw = append(raw, row)
	}
	if err := rows.Err(); err != nil {
		return foldx.Result[*models.Item]{}, fmt.Errorf("db error: %w", err)
	}

	return foldx.Collect(raw, func(r itemRow) string { return r.uuid }, toDomain), nil
}

func (r *PostgresRepository) CountAll(ctx context.Context, q Query) (int64, error) {
	query, args, err := q.countSQL()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

type integrityRow struct {
	uuid               string
	updatedAtTimestamp sql.NullInt64
	contentType        sql.NullString
}

func (r *PostgresRepository) integrityRows(ctx context.Context, userUUID string) ([]integrityRow, error) {
	query := `SELECT uuid, updated_at_timestamp, content_type FROM items
		WHERE user_uuid = $1 AND deleted = false
		ORDER BY updated_at_timestamp DESC`

	rows, err := r.db.QueryContext(ctx, query, userUUID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []integrityRow
	for rows.Next() {
		var row integrityRow
		if err := rows.Scan(&row.uuid, &row.updatedAtTimestamp, &row.contentType); err != nil {
			return nil, fmt.Errorf("scan integrity row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func toIntegrityPayload(r integrityRow) (models.IntegrityPayload, error) {
	if _, err := uuid.Parse(r.uuid); err != nil {
		return models.IntegrityPayload{}, fmt.Errorf("malformed uuid: %w", err)
	}
	if !r.updatedAtTimestamp.Valid {
		return models.IntegrityPayload{}, errors.New("missing updated_at_timestamp")
	}
	return models.IntegrityPayload{
		UUID:               r.uuid,
		UpdatedAtTimestamp: r.updatedAtTimestamp.Int64,
		ContentType:        models.ContentType(r.contentType.String),
	}, nil
}

func integrityKey(r integrityRow) string { return r.uuid }

// FindItemsForComputingIntegrityPayloads returns the non-deleted items of a
// user, newest first.
func (r *PostgresRepository) FindItemsForComputingIntegrityPayloads(ctx context.Context, userUUID string) (foldx.Result[models.IntegrityPayload], error) {
	raw, err := r.integrityRows(ctx, userUUID)
	if err != nil {
		return foldx.Result[models.IntegrityPayload]{}, err
	}
	res := foldx.Collect(raw, integrityKey, toIntegrityPayload)
	slices.SortStableFunc(res.Values, func(a, b models.IntegrityPayload) int {
		return cmp.Compare(b.UpdatedAtTimestamp, a.UpdatedAtTimestamp)
	})
	return res, nil
}

// FindDatesForComputingIntegrityHash returns the updated_at_timestamp of the
// non-deleted items of a user, newest first.
func (r *PostgresRepository) FindDatesForComputingIntegrityHash(ctx context.Context, userUUID string) (foldx.Result[int64], error) {
	raw, err := r.integrityRows(ctx, userUUID)
	if err != nil {
		return foldx.Result[int64]{}, err
	}
	res := foldx.Collect(raw, integrityKey, func(row integrityRow) (int64, error) {
		p, err := toIntegrityPayload(row)
		return p.UpdatedAtTimestamp, err
	})
	slices.SortStableFunc(res.Values, func(a, b int64) int { return cmp.Compare(b, a) })
	return res, nil
}

type sizeRow struct {
	uuid        string
	contentSize sql.NullInt64
}

// FindContentSizeForComputingTransferLimit returns a size descriptor for
// every item matching q. A NULL size counts as zero.
func (r *PostgresRepository) FindContentSizeForComputingTransferLimit(ctx context.Context, q Query) (foldx.Result[models.ItemContentSizeDescriptor], error) {
	query, args, err := q.selectSQL("uuid, content_size")
	if err != nil {
		return foldx.Result[models.ItemContentSizeDescriptor]{}, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return foldx.Result[models.ItemContentSizeDescriptor]{}, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var raw []sizeRow
	for rows.Next() {
		var row sizeRow
		if err := rows.Scan(&row.uuid, &row.contentSize); err != nil {
			return foldx.Result[models.ItemContentSizeDescriptor]{}, fmt.Errorf("scan size row: %w", err)
		}
		raw = append(raw, row)
	}
	if err := rows.Err(); err != nil {
		return foldx.Result[models.ItemContentSizeDescriptor]{}, fmt.Errorf("db error: %w", err)
	}

	return foldx.Collect(raw,
		func(r sizeRow) string { return r.uuid },
		func(r sizeRow) (models.ItemContentSizeDescriptor, error) {
			return models.NewItemContentSizeDescriptor(r.uuid, r.contentSize.Int64)
		},
	), nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func optionalString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Upsert inserts the item or replaces the stored state of the same uuid.
// The owner of an existing row never changes.
func (r *PostgresRepository) Upsert(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (uuid, user_uuid, group_uuid, content_type, items_key_id, content, content_size,
			enc_item_key, auth_hash, duplicate_of, deleted, created_at_timestamp, updated_at_timestamp,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (uuid)
		DO UPDATE SET
			group_uuid = EXCLUDED.group_uuid,
			content_type = EXCLUDED.content_type,
			items_key_id = EXCLUDED.items_key_id,
			content = EXCLUDED.content,
			content_size = EXCLUDED.content_size,
			enc_item_key = EXCLUDED.enc_item_key,
			auth_hash = EXCLUDED.auth_hash,
			duplicate_of = EXCLUDED.duplicate_of,
			deleted = EXCLUDED.deleted,
			updated_at_timestamp = EXCLUDED.updated_at_timestamp,
			updated_at = EXCLUDED.updated_at;
	`
	res, err := r.db.ExecContext(ctx, query,
		item.UUID, item.UserUUID, nullString(item.GroupUUID), optionalString(string(item.ContentType)),
		nullString(item.ItemsKeyID), optionalString(item.Content), item.ContentSize,
		optionalString(item.EncItemKey), optionalString(item.AuthHash), nullString(item.DuplicateOf),
		item.Deleted, item.CreatedAtTimestamp, item.UpdatedAtTimestamp, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

func (r *PostgresRepository) UpdateContentSize(ctx context.Context, itemUUID string, contentSize int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE items SET content_size = $1 WHERE uuid = $2`, contentSize, itemUUID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// MarkItemsAsDeleted turns the items into tombstones: payload columns are
// cleared and the timestamp is bumped.
func (r *PostgresRepository) MarkItemsAsDeleted(ctx context.Context, itemUUIDs []string, updatedAtTimestamp int64) error {
	if len(itemUUIDs) == 0 {
		return nil
	}
	b := &builder{}
	set := "deleted = true, content = NULL, enc_item_key = NULL, auth_hash = NULL, content_size = 0, updated_at_timestamp = " + b.arg(updatedAtTimestamp)
	b.in("uuid", itemUUIDs)

	if _, err := r.db.ExecContext(ctx, "UPDATE items SET "+set+b.where(), b.args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveByUUID(ctx context.Context, itemUUID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE uuid = $1`, itemUUID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByUserUUIDAndNotInGroup removes the private items of a user; items
// shared into a group stay.
func (r *PostgresRepository) DeleteByUserUUIDAndNotInGroup(ctx context.Context, userUUID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE user_uuid = $1 AND group_uuid IS NULL`, userUUID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
