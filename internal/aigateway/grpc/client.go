package grpc

import (
	"context"

	"github.com/charbel-alt28/aura-retail-ai/internal/aigateway"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is an aigateway.Gateway that calls a remote Automation server.
type Client struct {
	// Addr is the gRPC server address (e.g. "localhost:50061").
	Addr string
	// DialOptions are used when connecting (e.g. TLS, interceptors).
	DialOptions []grpc.DialOption
	// Conn, when set, is used instead of dialing Addr.
	Conn *grpc.ClientConn
}

// Name returns "grpc".
func (c *Client) Name() string { return "grpc" }

// Run calls RunAction on the remote server.
func (c *Client) Run(ctx context.Context, action aigateway.Action, products []models.Product) (aigateway.Result, error) {
	conn := c.Conn
	if conn == nil {
		opts := c.DialOptions
		if len(opts) == 0 {
			opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
		}
		var err error
		conn, err = grpc.NewClient(c.Addr, opts...)
		if err != nil {
			return nil, err
		}
		defer func() { _ = conn.Close() }()
	}

	in, err := requestToProto(action, products)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, RunActionMethod, in, out); err != nil {
		return nil, errorFromStatus(err)
	}
	return aigateway.Result(out.AsMap()), nil
}
