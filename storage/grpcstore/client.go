package grpcstore

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/tokengate/storage"
)

// Client implements storage.VisibilityStore over a Visibility gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client VisibilityClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ storage.VisibilityStore = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewVisibilityClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) SetVisibility(ctx context.Context, uri string, v storage.Visibility) error {
	if !v.Valid() {
		return storage.ErrInvalidVisibility
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"uri":        structpb.NewStringValue(uri),
		"visibility": structpb.NewStringValue(string(v)),
	}}
	if _, err := c.client.Set(ctx, in); err != nil {
		return mapRPC(err)
	}
	return nil
}

func (c *Client) Visibility(ctx context.Context, uri string) (storage.Visibility, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.String(uri))
	if err != nil {
		return "", mapRPC(err)
	}
	v := storage.Visibility(reply.GetValue())
	if !v.Valid() {
		return "", storage.ErrInvalidVisibility
	}
	return v, nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
