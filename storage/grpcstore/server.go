package grpcstore

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/tokengate/storage"
)

// Server exposes a storage.VisibilityStore over the Visibility gRPC service.
type Server struct {
	UnimplementedVisibilityServer
	Store storage.VisibilityStore
}

func (s *Server) Set(ctx context.Context, in *structpb.Struct) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	uri := in.GetFields()["uri"].GetStringValue()
	tier := storage.Visibility(in.GetFields()["visibility"].GetStringValue())
	if uri == "" || !tier.Valid() {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInvalidVisibility.Error())
	}
	if err := s.Store.SetVisibility(ctx, uri, tier); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(true), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	uri := in.GetValue()
	if uri == "" {
		return nil, status.Error(codes.InvalidArgument, "empty uri")
	}
	v, err := s.Store.Visibility(ctx, uri)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(string(v)), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case err == storage.ErrNotFound:
		return status.Error(codes.NotFound, err.Error())
	case err == storage.ErrInvalidVisibility:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
