package groupusers

import (
	"context"

	"github.com/dmitrijs2005/gophsync/internal/server/models"
)

type Repository interface {
	FindByUserAndGroup(ctx context.Context, userUUID, groupUUID string) (*models.GroupUser, error)
	Save(ctx context.Context, gu *models.GroupUser) error
}
