// Package services holds the server use cases: saving items through the
// validation chain, integrity checks, transfer bundles and backups.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/dbx"
	"github.com/dmitrijs2005/gophsync/internal/foldx"
	"github.com/dmitrijs2005/gophsync/internal/logging"
	"github.com/dmitrijs2005/gophsync/internal/server/events"
	"github.com/dmitrijs2005/gophsync/internal/server/groups"
	"github.com/dmitrijs2005/gophsync/internal/server/metrics"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/items"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophsync/internal/server/saverules"
	"github.com/dmitrijs2005/gophsync/internal/timex"
	"golang.org/x/sync/errgroup"
)

// DB is what the services need from *sql.DB.
type DB interface {
	dbx.DBTX
	dbx.TxBeginner
}

// SaveOptions tunes the save pipeline.
type SaveOptions struct {
	Concurrency         int
	MaxItemContentBytes int64
	SyncConflictLeeway  time.Duration
}

// SaveResult lists accepted items and conflicts in request order.
type SaveResult struct {
	Saved     []*models.Item
	Conflicts []models.Conflict
}

type ItemService struct {
	db          DB
	repomanager repomanager.RepositoryManager
	publisher   events.Publisher
	metrics     *metrics.SyncMetrics
	logger      logging.Logger
	opts        SaveOptions
	now         func() time.Time
}

func NewItemService(db DB, rm repomanager.RepositoryManager, publisher events.Publisher,
	m *metrics.SyncMetrics, logger logging.Logger, opts SaveOptions) *ItemService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ItemService{
		db:          db,
		repomanager: rm,
		publisher:   publisher,
		metrics:     m,
		logger:      logger.With("module", "items"),
		opts:        opts,
		now:         time.Now,
	}
}

// outcome of one hash; exactly one field is set.
type outcome struct {
	saved    *models.Item
	conflict *models.Conflict
}

// SaveItems validates and persists hashes for userUUID. Each hash is checked
// and written in its own repeatable-read transaction that locks the stored
// row, so the verdict and the write see the same version. Hashes sharing a
// uuid are handled one after another in request order; distinct uuids run in
// parallel up to the configured concurrency.
//
// Rejected hashes become conflicts. A lookup or storage failure aborts the
// request with an error; hashes committed before the failure stay committed.
func (s *ItemService) SaveItems(ctx context.Context, userUUID string, hashes []models.ItemHash) (*SaveResult, error) {
	if userUUID == "" {
		return nil, fmt.Errorf("%w: empty acting user", common.ErrPrecondition)
	}

	results := make([]outcome, len(hashes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for _, lane := range lanes(hashes) {
		g.Go(func() error {
			for _, i := range lane {
				out, err := s.saveOne(gctx, userUUID, &hashes[i])
				if err != nil {
					return fmt.Errorf("save item %s: %w", hashes[i].UUID, err)
				}
				results[i] = out
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error(ctx, "save failed", "user_uuid", userUUID, "error", err)
		return nil, err
	}

	res := &SaveResult{Saved: []*models.Item{}, Conflicts: []models.Conflict{}}
	for _, out := range results {
		if out.conflict != nil {
			res.Conflicts = append(res.Conflicts, *out.conflict)
			continue
		}
		res.Saved = append(res.Saved, out.saved)
		s.publish(ctx, out.saved)
	}

	s.logger.Info(ctx, "items saved", "user_uuid", userUUID, "saved", len(res.Saved), "conflicts", len(res.Conflicts))
	return res, nil
}

// lanes groups hash indices by uuid, keeping the first-seen order.
func lanes(hashes []models.ItemHash) [][]int {
	pos := make(map[string]int, len(hashes))
	var out [][]int
	for i, h := range hashes {
		if p, ok := pos[h.UUID]; ok {
			out[p] = append(out[p], i)
			continue
		}
		pos[h.UUID] = len(out)
		out = append(out, []int{i})
	}
	return out
}

func (s *ItemService) saveOne(ctx context.Context, userUUID string, hash *models.ItemHash) (outcome, error) {
	var out outcome
	err := dbx.WithSnapshotTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Items(tx)

		existing, err := repo.FindByUUIDForUpdate(ctx, hash.UUID)
		if err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("load existing item: %w", err)
			}
			existing = nil
		}

		chain := saverules.NewDefaultChain(
			s.repomanager.Groups(tx),
			groups.NewAuthorizer(s.repomanager.GroupUsers(tx)),
			s.opts.MaxItemContentBytes,
			s.opts.SyncConflictLeeway,
		)

		start := time.Now()
		verdict, err := chain.Check(ctx, saverules.Input{UserUUID: userUUID, ItemHash: hash, ExistingItem: existing})
		if err != nil {
			return err
		}

		if conflict, failed := saverules.ConflictOf(verdict); failed {
			s.metrics.RecordVerdict(string(conflict.Type), time.Since(start).Seconds())
			s.logger.Debug(ctx, "item rejected", "item_uuid", hash.UUID, "conflict", conflict.Type)
			out.conflict = &conflict
			return nil
		}
		s.metrics.RecordVerdict(metrics.OutcomePassed, time.Since(start).Seconds())

		item := buildItem(userUUID, hash, existing, s.now())
		if err := repo.Upsert(ctx, item); err != nil {
			return fmt.Errorf("persist item: %w", err)
		}
		out.saved = item
		return nil
	})
	if err != nil {
		return outcome{}, err
	}
	if out.saved != nil {
		s.metrics.RecordSaved()
	}
	return out, nil
}

// buildItem maps an accepted hash onto the stored state. The owner of an
// existing item never changes and the server stamps updated_at.
func buildItem(userUUID string, hash *models.ItemHash, existing *models.Item, now time.Time) *models.Item {
	now = now.UTC()
	item := &models.Item{
		UUID:               hash.UUID,
		UserUUID:           userUUID,
		ContentType:        hash.ContentType,
		ItemsKeyID:         hash.ItemsKeyID,
		Content:            hash.Content,
		ContentSize:        hash.ContentSize(),
		EncItemKey:         hash.EncItemKey,
		AuthHash:           hash.AuthHash,
		DuplicateOf:        hash.DuplicateOf,
		Deleted:            hash.Deleted,
		CreatedAt:          now,
		UpdatedAt:          now,
		CreatedAtTimestamp: hash.CreatedAtTimestamp,
		UpdatedAtTimestamp: timex.Microseconds(now),
	}
	if hash.HasGroup() {
		g := *hash.GroupUUID
		item.GroupUUID = &g
	}
	if item.CreatedAtTimestamp == 0 {
		item.CreatedAtTimestamp = item.UpdatedAtTimestamp
	}
	if existing != nil {
		item.UserUUID = existing.UserUUID
		item.CreatedAt = existing.CreatedAt
		item.CreatedAtTimestamp = existing.CreatedAtTimestamp
	}
	if item.Deleted {
		item.Content, item.EncItemKey, item.AuthHash, item.ContentSize = "", "", "", 0
	}
	return item
}

func (s *ItemService) publish(ctx context.Context, item *models.Item) {
	e := events.ItemRevisionRequested{
		ItemUUID:           item.UUID,
		UserUUID:           item.UserUUID,
		UpdatedAtTimestamp: item.UpdatedAtTimestamp,
		Deleted:            item.Deleted,
	}
	if item.GroupUUID != nil {
		e.GroupUUID = *item.GroupUUID
	}
	if err := s.publisher.PublishItemRevisionRequested(ctx, e); err != nil {
		s.metrics.RecordPublishFailure()
		s.logger.Warn(ctx, "revision event not published", "item_uuid", item.UUID, "error", err)
	}
}

// ListItems returns the items of userUUID matching q. The user filter is
// always forced to userUUID.
func (s *ItemService) ListItems(ctx context.Context, userUUID string, q items.Query) (foldx.Result[*models.Item], error) {
	if userUUID == "" {
		return foldx.Result[*models.Item]{}, fmt.Errorf("%w: empty acting user", common.ErrPrecondition)
	}
	q.UserUUID = userUUID
	if q.Limit == 0 {
		q.Limit = common.DefaultPageLimit
	}

	res, err := s.repomanager.Items(s.db).FindAll(ctx, q)
	if err != nil {
		return foldx.Result[*models.Item]{}, fmt.Errorf("list items: %w", err)
	}
	logSkipped(ctx, s.logger, s.metrics, "list", res.Skipped)
	return res, nil
}

func logSkipped(ctx context.Context, logger logging.Logger, m *metrics.SyncMetrics, projection string, skipped []foldx.Skip) {
	for _, sk := range skipped {
		logger.Error(ctx, "row skipped", "projection", projection, "item_uuid", sk.Key, "reason", sk.Reason)
	}
	m.RecordSkipped(projection, len(skipped))
}
