package groups

import (
	"context"

	"github.com/dmitrijs2005/gophsync/internal/server/models"
)

type Repository interface {
	FindByUUID(ctx context.Context, groupUUID string) (*models.Group, error)
	Create(ctx context.Context, group *models.Group) error
}
