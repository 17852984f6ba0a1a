package api

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/browscap/internal/types"
)

/*
 * gRPC lookup service.
 *
 * The service uses well-known protobuf types only, so no generated code is
 * needed:
 *
 *   service browscap.v1.Lookup {
 *     rpc GetBrowser(google.protobuf.StringValue) returns (google.protobuf.Struct);
 *     rpc GetVersion(google.protobuf.Empty) returns (google.protobuf.Struct);
 *   }
 *
 * GetBrowser takes the User-Agent and returns the get_browser style property
 * map with lower-cased keys.
 */

// Full method names, for interceptors.
const (
	LookupServiceName    = "browscap.v1.Lookup"
	GetBrowserFullMethod = "/" + LookupServiceName + "/GetBrowser"
	GetVersionFullMethod = "/" + LookupServiceName + "/GetVersion"
)

// LookupServer is the server API for the Lookup service.
type LookupServer interface {
	GetBrowser(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetVersion(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// LookupServiceDesc describes the Lookup service for grpc.Server.
var LookupServiceDesc = grpc.ServiceDesc{
	ServiceName: LookupServiceName,
	HandlerType: (*LookupServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBrowser", Handler: getBrowserHandler},
		{MethodName: "GetVersion", Handler: getVersionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "browscap/v1/lookup.proto",
}

// RegisterLookupServer registers srv on s.
func RegisterLookupServer(s grpc.ServiceRegistrar, srv LookupServer) {
	s.RegisterService(&LookupServiceDesc, srv)
}

func getBrowserHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LookupServer).GetBrowser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetBrowserFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LookupServer).GetBrowser(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getVersionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LookupServer).GetVersion(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetVersionFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LookupServer).GetVersion(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// LookupClient calls the Lookup service.
type LookupClient struct {
	cc grpc.ClientConnInterface
}

// NewLookupClient creates a client over cc.
func NewLookupClient(cc grpc.ClientConnInterface) *LookupClient {
	return &LookupClient{cc: cc}
}

// GetBrowser looks up ua remotely.
func (c *LookupClient) GetBrowser(ctx context.Context, ua string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetBrowserFullMethod, wrapperspb.String(ua), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetVersion returns the remotely served dataset.
func (c *LookupClient) GetVersion(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetVersionFullMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBrowser implements LookupServer.
func (s *LookupService) GetBrowser(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ua := req.GetValue()
	if ua == "" {
		return nil, toStatus(fmt.Errorf("%w: user agent required", types.ErrInvalidArgument))
	}
	b, err := s.Lookup(ctx, ua)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(b.Map(true))
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// GetVersion implements LookupServer.
func (s *LookupService) GetVersion(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	meta, err := s.Metadata()
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(versionMap(meta))
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

func versionMap(meta types.Metadata) map[string]any {
	return map[string]any{
		"version":       meta.Version,
		"released":      meta.ReleaseDate,
		"type":          meta.Type,
		"format":        meta.Format,
		"build_id":      string(meta.BuildID),
		"checksum":      meta.Checksum,
		"compiled_at":   meta.CompiledAt.Format(time.RFC3339),
		"dropped_rules": meta.DroppedRules,
	}
}
