// Package groups stores shared vaults (groups) in PostgreSQL.
package groups

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

// FindByUUID returns common.ErrorNotFound when the group does not exist.
func (r *PostgresRepository) FindByUUID(ctx context.Context, groupUUID string) (*models.Group, error) {
	query :=
		`SELECT uuid, user_uuid, specified_items_key_uuid, created_at_timestamp, updated_at_timestamp
		 FROM groups
		 WHERE uuid = $1
		 `

	g := &models.Group{}
	err := r.db.QueryRowContext(ctx, query, groupUUID).Scan(
		&g.UUID, &g.UserUUID, &g.SpecifiedItemsKeyUUID, &g.CreatedAtTimestamp, &g.UpdatedAtTimestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) Create(ctx context.Context, g *models.Group) error {
	query :=
		`INSERT INTO groups (uuid, user_uuid, specified_items_key_uuid, created_at_timestamp, updated_at_timestamp)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	if _, err := r.db.ExecContext(ctx, query,
		g.UUID, g.UserUUID, g.SpecifiedItemsKeyUUID, g.CreatedAtTimestamp, g.UpdatedAtTimestamp); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
