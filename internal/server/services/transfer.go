package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/foldx"
	"github.com/dmitrijs2005/gophsync/internal/logging"
	"github.com/dmitrijs2005/gophsync/internal/server/metrics"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/items"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/repomanager"
)

// TransferService splits a user's item set into downloads that respect a
// byte budget.
type TransferService struct {
	db           DB
	repomanager  repomanager.RepositoryManager
	metrics      *metrics.SyncMetrics
	logger       logging.Logger
	defaultLimit int64
}

func NewTransferService(db DB, rm repomanager.RepositoryManager, m *metrics.SyncMetrics, logger logging.Logger, defaultLimit int64) *TransferService {
	return &TransferService{db: db, repomanager: rm, metrics: m, logger: logger.With("module", "transfer"), defaultLimit: defaultLimit}
}

// ContentSizeDescriptors returns size descriptors for the items matching q.
func (s *TransferService) ContentSizeDescriptors(ctx context.Context, q items.Query) (foldx.Result[models.ItemContentSizeDescriptor], error) {
	res, err := s.repomanager.Items(s.db).FindContentSizeForComputingTransferLimit(ctx, q)
	if err != nil {
		return foldx.Result[models.ItemContentSizeDescriptor]{}, fmt.Errorf("content size descriptors: %w", err)
	}
	logSkipped(ctx, s.logger, s.metrics, "transfer", res.Skipped)
	return res, nil
}

// Bundles splits every item of userUUID, oldest change first, into bundles
// of at most limit bytes. A non-positive limit uses the configured default.
func (s *TransferService) Bundles(ctx context.Context, userUUID string, limit int64) ([][]string, error) {
	if userUUID == "" {
		return nil, fmt.Errorf("%w: empty user", common.ErrPrecondition)
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	res, err := s.ContentSizeDescriptors(ctx, items.Query{
		UserUUID:  userUUID,
		SortBy:    items.SortByUpdatedAtTimestamp,
		SortOrder: items.Ascending,
	})
	if err != nil {
		return nil, err
	}
	return ItemUUIDBundles(res.Values, limit), nil
}

// ItemUUIDsToFetch takes descriptors in order while the running total stays
// within limit. The first item is always taken, however large.
func ItemUUIDsToFetch(descriptors []models.ItemContentSizeDescriptor, limit int64) []string {
	uuids := []string{}
	var total int64
	for _, d := range descriptors {
		if len(uuids) > 0 && total+d.ContentSize() > limit {
			break
		}
		uuids = append(uuids, d.UUID())
		total += d.ContentSize()
	}
	return uuids
}

// ItemUUIDBundles applies ItemUUIDsToFetch repeatedly until every
// descriptor is in a bundle.
func ItemUUIDBundles(descriptors []models.ItemContentSizeDescriptor, limit int64) [][]string {
	bundles := [][]string{}
	for len(descriptors) > 0 {
		bundle := ItemUUIDsToFetch(descriptors, limit)
		bundles = append(bundles, bundle)
		descriptors = descriptors[len(bundle):]
	}
	return bundles
}
