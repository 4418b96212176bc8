package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/server/auth"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
	"github.com/dmitrijs2005/gophsync/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startBufServer(t *testing.T, secret string, svc Services) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := newTestServer(secret, svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return conn
}

func TestSyncService_OverTheWire(t *testing.T) {
	secret := "wire-secret"
	fi := &fakeItems{saveRes: &services.SaveResult{
		Saved:     []*models.Item{{UUID: "i1", UserUUID: testUser, ContentType: models.ContentTypeNote}},
		Conflicts: []models.Conflict{},
	}}
	conn := startBufServer(t, secret, Services{Items: fi})
	client := NewSyncServiceClient(conn)

	token, err := auth.GenerateToken(testUser, []byte(secret), time.Minute)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	authed := metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, token)

	resp, err := client.SaveItems(authed, &SaveItemsRequest{Items: []models.ItemHash{
		{UUID: "i1", ContentType: models.ContentTypeNote, Content: "x"},
	}})
	require.NoError(t, err)
	require.Len(t, resp.SavedItems, 1)
	assert.Equal(t, "i1", resp.SavedItems[0].UUID)
	assert.Equal(t, testUser, fi.gotUser)
	require.Len(t, fi.gotHashes, 1)
	assert.Equal(t, "x", fi.gotHashes[0].Content)

	_, err = client.SaveItems(ctx, &SaveItemsRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHealth_IsServing(t *testing.T) {
	conn := startBufServer(t, "k", Services{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
