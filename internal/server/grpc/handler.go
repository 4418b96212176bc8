package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/items"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC codes. Internal details are logged
// and never sent to the client.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, common.ErrPrecondition):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	s.logger.Error(ctx, "request failed", "method", method, "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) actingUser(ctx context.Context) (string, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing user")
	}
	return userID, nil
}

func (s *GRPCServer) SaveItems(ctx context.Context, req *SaveItemsRequest) (*SaveItemsResponse, error) {
	userID, err := s.actingUser(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Items.SaveItems(ctx, userID, req.Items)
	if err != nil {
		return nil, s.toStatus(ctx, SaveItemsMethod, err)
	}

	return &SaveItemsResponse{SavedItems: result.Saved, Conflicts: result.Conflicts}, nil
}

func (s *GRPCServer) CheckIntegrity(ctx context.Context, req *CheckIntegrityRequest) (*CheckIntegrityResponse, error) {
	userID, err := s.actingUser(ctx)
	if err != nil {
		return nil, err
	}

	inSync, serverHash, err := s.services.Integrity.CheckIntegrity(ctx, userID, req.IntegrityHash)
	if err != nil {
		return nil, s.toStatus(ctx, CheckIntegrityMethod, err)
	}

	return &CheckIntegrityResponse{InSync: inSync, ServerHash: serverHash}, nil
}

func (s *GRPCServer) ListItems(ctx context.Context, req *ListItemsRequest) (*ListItemsResponse, error) {
	userID, err := s.actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, status.Error(codes.InvalidArgument, "negative limit or offset")
	}

	q := items.Query{
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortBy:    items.SortByUpdatedAtTimestamp,
		SortOrder: items.Ascending,
	}
	if req.LastSyncTime > 0 {
		q.LastSyncTime = req.LastSyncTime
		q.SyncTimeComparison = items.NewerThan
	}
	if req.ContentType != "" {
		q.ContentTypes = []models.ContentType{models.ContentType(req.ContentType)}
	}

	res, err := s.services.Items.ListItems(ctx, userID, q)
	if err != nil {
		return nil, s.toStatus(ctx, ListItemsMethod, err)
	}

	resp := &ListItemsResponse{Items: res.Values}
	for _, sk := range res.Skipped {
		resp.Skipped = append(resp.Skipped, SkippedRow{Key: sk.Key, Reason: sk.Reason})
	}
	return resp, nil
}

func (s *GRPCServer) ItemsToFetch(ctx context.Context, req *ItemsToFetchRequest) (*ItemsToFetchResponse, error) {
	userID, err := s.actingUser(ctx)
	if err != nil {
		return nil, err
	}

	bundles, err := s.services.Transfer.Bundles(ctx, userID, req.TransferLimitBytes)
	if err != nil {
		return nil, s.toStatus(ctx, ItemsToFetchMethod, err)
	}

	return &ItemsToFetchResponse{Bundles: bundles}, nil
}

func (s *GRPCServer) RequestBackup(ctx context.Context, _ *RequestBackupRequest) (*RequestBackupResponse, error) {
	userID, err := s.actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if s.services.Backups == nil {
		return nil, status.Error(codes.Unimplemented, "backups are not configured")
	}

	key, url, err := s.services.Backups.RequestBackup(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, RequestBackupMethod, err)
	}

	s.logger.Info(ctx, "backup requested", "user_uuid", userID, "key", key)
	return &RequestBackupResponse{Key: key, URL: url}, nil
}
