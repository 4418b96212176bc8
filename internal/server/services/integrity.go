package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/foldx"
	"github.com/dmitrijs2005/gophsync/internal/logging"
	"github.com/dmitrijs2005/gophsync/internal/server/metrics"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/repomanager"
)

// IntegrityService computes what clients compare to detect divergence.
type IntegrityService struct {
	db          DB
	repomanager repomanager.RepositoryManager
	metrics     *metrics.SyncMetrics
	logger      logging.Logger
}

func NewIntegrityService(db DB, rm repomanager.RepositoryManager, m *metrics.SyncMetrics, logger logging.Logger) *IntegrityService {
	return &IntegrityService{db: db, repomanager: rm, metrics: m, logger: logger.With("module", "integrity")}
}

// IntegrityTimestamps returns the updated_at_timestamp of every non-deleted
// item of userUUID, newest first. Rows that cannot be read are skipped,
// logged and reported.
func (s *IntegrityService) IntegrityTimestamps(ctx context.Context, userUUID string) (foldx.Result[int64], error) {
	if userUUID == "" {
		return foldx.Result[int64]{}, fmt.Errorf("%w: empty user", common.ErrPrecondition)
	}
	res, err := s.repomanager.Items(s.db).FindDatesForComputingIntegrityHash(ctx, userUUID)
	if err != nil {
		return foldx.Result[int64]{}, fmt.Errorf("integrity timestamps: %w", err)
	}
	logSkipped(ctx, s.logger, s.metrics, "integrity", res.Skipped)
	return res, nil
}

// IntegrityPayloads is IntegrityTimestamps with uuid and content type.
func (s *IntegrityService) IntegrityPayloads(ctx context.Context, userUUID string) (foldx.Result[models.IntegrityPayload], error) {
	if userUUID == "" {
		return foldx.Result[models.IntegrityPayload]{}, fmt.Errorf("%w: empty user", common.ErrPrecondition)
	}
	res, err := s.repomanager.Items(s.db).FindItemsForComputingIntegrityPayloads(ctx, userUUID)
	if err != nil {
		return foldx.Result[models.IntegrityPayload]{}, fmt.Errorf("integrity payloads: %w", err)
	}
	logSkipped(ctx, s.logger, s.metrics, "integrity_payloads", res.Skipped)
	return res, nil
}

// ComputeHash is the hex SHA-256 of the timestamps joined with commas, in
// the order given.
func ComputeHash(timestamps []int64) string {
	parts := make([]string, len(timestamps))
	for i, ts := range timestamps {
		parts[i] = strconv.FormatInt(ts, 10)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ",")))
	return hex.EncodeToString(sum[:])
}

// ServerHash is the integrity hash of the current item set of userUUID.
func (s *IntegrityService) ServerHash(ctx context.Context, userUUID string) (string, error) {
	res, err := s.IntegrityTimestamps(ctx, userUUID)
	if err != nil {
		return "", err
	}
	return ComputeHash(res.Values), nil
}

// CheckIntegrity compares clientHash with the server hash.
func (s *IntegrityService) CheckIntegrity(ctx context.Context, userUUID, clientHash string) (bool, string, error) {
	serverHash, err := s.ServerHash(ctx, userUUID)
	if err != nil {
		return false, "", err
	}
	inSync := strings.EqualFold(serverHash, clientHash)
	if !inSync {
		s.logger.Info(ctx, "integrity mismatch", "user_uuid", userUUID)
	}
	return inSync, serverHash, nil
}
