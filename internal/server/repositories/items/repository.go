package items

import (
	"context"

	"github.com/dmitrijs2005/gophsync/internal/foldx"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
)

// Repository is the item store. Read methods that fold rows into domain
// values report unconvertible rows in the result instead of failing.
type Repository interface {
	FindByUUID(ctx context.Context, itemUUID string) (*models.Item, error)
	FindByUUIDForUpdate(ctx context.Context, itemUUID string) (*models.Item, error)
	FindAll(ctx context.Context, q Query) (foldx.Result[*models.Item], error)
	CountAll(ctx context.Context, q Query) (int64, error)

	FindDatesForComputingIntegrityHash(ctx context.Context, userUUID string) (foldx.Result[int64], error)
	FindItemsForComputingIntegrityPayloads(ctx context.Context, userUUID string) (foldx.Result[models.IntegrityPayload], error)
	FindContentSizeForComputingTransferLimit(ctx context.Context, q Query) (foldx.Result[models.ItemContentSizeDescriptor], error)

	Upsert(ctx context.Context, item *models.Item) error
	UpdateContentSize(ctx context.Context, itemUUID string, contentSize int64) error
	MarkItemsAsDeleted(ctx context.Context, itemUUIDs []string, updatedAtTimestamp int64) error
	RemoveByUUID(ctx context.Context, itemUUID string) error
	DeleteByUserUUIDAndNotInGroup(ctx context.Context, userUUID string) error
}
