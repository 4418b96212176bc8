package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophsync/internal/server/models"
	"google.golang.org/grpc"
)

const ServiceName = "gophsync.v1.SyncService"

const (
	SaveItemsMethod      = "/" + ServiceName + "/SaveItems"
	CheckIntegrityMethod = "/" + ServiceName + "/CheckIntegrity"
	ListItemsMethod      = "/" + ServiceName + "/ListItems"
	ItemsToFetchMethod   = "/" + ServiceName + "/ItemsToFetch"
	RequestBackupMethod  = "/" + ServiceName + "/RequestBackup"
)

type SaveItemsRequest struct {
	Items []models.ItemHash `json:"items"`
}

type SaveItemsResponse struct {
	SavedItems []*models.Item    `json:"saved_items"`
	Conflicts  []models.Conflict `json:"conflicts"`
}

type CheckIntegrityRequest struct {
	IntegrityHash string `json:"integrity_hash"`
}

type CheckIntegrityResponse struct {
	InSync     bool   `json:"in_sync"`
	ServerHash string `json:"server_hash"`
}

// ListItemsRequest pages through the caller's items. A positive
// LastSyncTime (microseconds) returns only items changed after it.
type ListItemsRequest struct {
	LastSyncTime int64  `json:"last_sync_time,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

type SkippedRow struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

type ListItemsResponse struct {
	Items   []*models.Item `json:"items"`
	Skipped []SkippedRow   `json:"skipped,omitempty"`
}

type ItemsToFetchRequest struct {
	TransferLimitBytes int64 `json:"transfer_limit_bytes,omitempty"`
}

type ItemsToFetchResponse struct {
	Bundles [][]string `json:"bundles"`
}

type RequestBackupRequest struct{}

type RequestBackupResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// SyncServiceServer is the server API of SyncService.
type SyncServiceServer interface {
	SaveItems(context.Context, *SaveItemsRequest) (*SaveItemsResponse, error)
	CheckIntegrity(context.Context, *CheckIntegrityRequest) (*CheckIntegrityResponse, error)
	ListItems(context.Context, *ListItemsRequest) (*ListItemsResponse, error)
	ItemsToFetch(context.Context, *ItemsToFetchRequest) (*ItemsToFetchResponse, error)
	RequestBackup(context.Context, *RequestBackupRequest) (*RequestBackupResponse, error)
}

func RegisterSyncServiceServer(s grpc.ServiceRegistrar, srv SyncServiceServer) {
	s.RegisterService(&SyncServiceDesc, srv)
}

// unaryHandler adapts one typed method to the grpc.MethodDesc handler shape.
func unaryHandler[Req any, Resp any](method string, call func(SyncServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SyncServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SyncServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var SyncServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SaveItems", Handler: unaryHandler(SaveItemsMethod, SyncServiceServer.SaveItems)},
		{MethodName: "CheckIntegrity", Handler: unaryHandler(CheckIntegrityMethod, SyncServiceServer.CheckIntegrity)},
		{MethodName: "ListItems", Handler: unaryHandler(ListItemsMethod, SyncServiceServer.ListItems)},
		{MethodName: "ItemsToFetch", Handler: unaryHandler(ItemsToFetchMethod, SyncServiceServer.ItemsToFetch)},
		{MethodName: "RequestBackup", Handler: unaryHandler(RequestBackupMethod, SyncServiceServer.RequestBackup)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophsync/v1/sync.json",
}

// SyncServiceClient is the client API of SyncService. Calls use the JSON
// codec.
type SyncServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSyncServiceClient(cc grpc.ClientConnInterface) *SyncServiceClient {
	return &SyncServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SyncServiceClient) SaveItems(ctx context.Context, in *SaveItemsRequest, opts ...grpc.CallOption) (*SaveItemsResponse, error) {
	return invoke[SaveItemsResponse](ctx, c.cc, SaveItemsMethod, in, opts)
}

func (c *SyncServiceClient) CheckIntegrity(ctx context.Context, in *CheckIntegrityRequest, opts ...grpc.CallOption) (*CheckIntegrityResponse, error) {
	return invoke[CheckIntegrityResponse](ctx, c.cc, CheckIntegrityMethod, in, opts)
}

func (c *SyncServiceClient) ListItems(ctx context.Context, in *ListItemsRequest, opts ...grpc.CallOption) (*ListItemsResponse, error) {
	return invoke[ListItemsResponse](ctx, c.cc, ListItemsMethod, in, opts)
}

func (c *SyncServiceClient) ItemsToFetch(ctx context.Context, in *ItemsToFetchRequest, opts ...grpc.CallOption) (*ItemsToFetchResponse, error) {
	return invoke[ItemsToFetchResponse](ctx, c.cc, ItemsToFetchMethod, in, opts)
}

func (c *SyncServiceClient) RequestBackup(ctx context.Context, in *RequestBackupRequest, opts ...grpc.CallOption) (*RequestBackupResponse, error) {
	return invoke[RequestBackupResponse](ctx, c.cc, RequestBackupMethod, in, opts)
}
