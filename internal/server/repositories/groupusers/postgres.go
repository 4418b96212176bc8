// Package groupusers stores group memberships in PostgreSQL.
package groupusers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/dbx"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByUserAndGroup returns common.ErrorNotFound when the user is not a
// member of the group. The stored permission is returned as is.
func (r *PostgresRepository) FindByUserAndGroup(ctx context.Context, userUUID, groupUUID string) (*models.GroupUser, error) {
	query :=
		`SELECT uuid, group_uuid, user_uuid, permission, created_at_timestamp, updated_at_timestamp
		 FROM group_users
		 WHERE user_uuid = $1 AND group_uuid = $2
		 `

	gu := &models.GroupUser{}
	err := r.db.QueryRowContext(ctx, query, userUUID, groupUUID).Scan(
		&gu.UUID, &gu.GroupUUID, &gu.UserUUID, &gu.Permission, &gu.CreatedAtTimestamp, &gu.UpdatedAtTimestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return gu, nil
}

// Save adds a membership or changes the permission of an existing one.
func (r *PostgresRepository) Save(ctx context.Context, gu *models.GroupUser) error {
	query := `
		INSERT INTO group_users (uuid, group_uuid, user_uuid, permission, created_at_timestamp, updated_at_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (group_uuid, user_uuid)
		DO UPDATE SET
			permission = EXCLUDED.permission,
			updated_at_timestamp = EXCLUDED.updated_at_timestamp;
	`
	res, err := r.db.ExecContext(ctx, query,
		gu.UUID, gu.GroupUUID, gu.UserUUID, string(gu.Permission), gu.CreatedAtTimestamp, gu.UpdatedAtTimestamp)
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
