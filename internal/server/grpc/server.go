// Package grpc exposes the sync use cases as the gophsync.v1.SyncService
// gRPC service.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophsync/internal/foldx"
	"github.com/dmitrijs2005/gophsync/internal/logging"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/items"
	"github.com/dmitrijs2005/gophsync/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type ItemService interface {
	SaveItems(ctx context.Context, userUUID string, hashes []models.ItemHash) (*services.SaveResult, error)
	ListItems(ctx context.Context, userUUID string, q items.Query) (foldx.Result[*models.Item], error)
}

type IntegrityService interface {
	CheckIntegrity(ctx context.Context, userUUID, clientHash string) (bool, string, error)
}

type TransferService interface {
	Bundles(ctx context.Context, userUUID string, limit int64) ([][]string, error)
}

type BackupService interface {
	RequestBackup(ctx context.Context, userUUID string) (string, string, error)
}

// Services bundles the use cases the server dispatches to. Backups may be
// nil when no object storage is configured.
type Services struct {
	Items     ItemService
	Integrity IntegrityService
	Transfer  TransferService
	Backups   BackupService
}

type GRPCServer struct {
	address   string
	services  Services
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, svc Services, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		services:  svc,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	RegisterSyncServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
