package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/logging"
	"github.com/dmitrijs2005/gophsync/internal/server/metrics"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/items"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/repomanager"
)

// BackupStore is the object storage behind backups.
type BackupStore interface {
	Key(userUUID string) string
	Put(ctx context.Context, key string, body []byte) error
	PresignGet(ctx context.Context, key string) (string, error)
}

type BackupService struct {
	db          DB
	repomanager repomanager.RepositoryManager
	store       BackupStore
	metrics     *metrics.SyncMetrics
	logger      logging.Logger
}

func NewBackupService(db DB, rm repomanager.RepositoryManager, store BackupStore, m *metrics.SyncMetrics, logger logging.Logger) *BackupService {
	return &BackupService{db: db, repomanager: rm, store: store, metrics: m, logger: logger.With("module", "backups")}
}

// RequestBackup writes the non-deleted items of userUUID as a JSON array to
// the store and returns the object key with a presigned download link.
func (s *BackupService) RequestBackup(ctx context.Context, userUUID string) (string, string, error) {
	if userUUID == "" {
		return "", "", fmt.Errorf("%w: empty user", common.ErrPrecondition)
	}
	notDeleted := false
	res, err := s.repomanager.Items(s.db).FindAll(ctx, items.Query{
		UserUUID:  userUUID,
		Deleted:   &notDeleted,
		SortBy:    items.SortByCreatedAtTimestamp,
		SortOrder: items.Ascending,
	})
	if err != nil {
		return "", "", fmt.Errorf("load items: %w", err)
	}
	logSkipped(ctx, s.logger, s.metrics, "backup", res.Skipped)

	body, err := json.Marshal(res.Values)
	if err != nil {
		return "", "", fmt.Errorf("encode backup: %w", err)
	}

	key := s.store.Key(userUUID)
	if err := s.store.Put(ctx, key, body); err != nil {
		return "", "", err
	}
	url, err := s.store.PresignGet(ctx, key)
	if err != nil {
		return "", "", err
	}

	s.logger.Info(ctx, "backup written", "user_uuid", userUUID, "key", key, "items", len(res.Values))
	return key, url, nil
}
