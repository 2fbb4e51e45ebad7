package grpcstore

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// VisibilityServer is the server API for the Visibility gRPC service.
//
// We intentionally use protobuf well-known types so this package does not
// require a protoc/codegen toolchain. Set requests are structpb structs
// with "uri" and "visibility" string fields.
//
// Proto definition: visibility.proto.
type VisibilityServer interface {
	Set(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// UnimplementedVisibilityServer can be embedded to have forward compatible implementations.
type UnimplementedVisibilityServer struct{}

func (UnimplementedVisibilityServer) Set(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Set not implemented")
}
func (UnimplementedVisibilityServer) Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}

// RegisterVisibilityServer registers the Visibility service on a gRPC server.
func RegisterVisibilityServer(s grpc.ServiceRegistrar, srv VisibilityServer) {
	s.RegisterService(&Visibility_ServiceDesc, srv)
}

// VisibilityClient is the client API for the Visibility gRPC service.
type VisibilityClient interface {
	Set(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type visibilityClient struct{ cc grpc.ClientConnInterface }

func NewVisibilityClient(cc grpc.ClientConnInterface) VisibilityClient {
	return &visibilityClient{cc: cc}
}

func (c *visibilityClient) Set(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	err := c.cc.Invoke(ctx, "/xdao.tokengate.storage.grpcstore.v1.Visibility/Set", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *visibilityClient) Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, "/xdao.tokengate.storage.grpcstore.v1.Visibility/Get", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _Visibility_Set_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VisibilityServer).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.tokengate.storage.grpcstore.v1.Visibility/Set"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VisibilityServer).Set(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Visibility_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VisibilityServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.tokengate.storage.grpcstore.v1.Visibility/Get"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VisibilityServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Visibility_ServiceDesc is the grpc.ServiceDesc for Visibility service.
var Visibility_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "xdao.tokengate.storage.grpcstore.v1.Visibility",
	HandlerType: (*VisibilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Set", Handler: _Visibility_Set_Handler},
		{MethodName: "Get", Handler: _Visibility_Get_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "visibility.proto",
}
