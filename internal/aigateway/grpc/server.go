// Package grpc exposes an aigateway.Gateway over gRPC and provides the
// matching client. Messages are google.protobuf.Struct so no generated code
// is needed.
package grpc

import (
	"context"
	"log/slog"

	"github.com/charbel-alt28/aura-retail-ai/internal/aigateway"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName     = "aura.ai.v1.Automation"
	RunActionMethod = "/" + ServiceName + "/RunAction"
)

type automationServer interface {
	RunAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*automationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunAction", Handler: runActionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "aura/ai/v1/automation.proto",
}

func runActionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(automationServer).RunAction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RunActionMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(automationServer).RunAction(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Server wraps a Gateway and serves it as aura.ai.v1.Automation.
type Server struct {
	Gateway aigateway.Gateway
}

// Register adds the service to s.
func Register(s *grpc.Server, srv *Server) {
	s.RegisterService(&serviceDesc, srv)
}

// RunAction decodes {action, products}, runs the gateway and returns its result.
func (s *Server) RunAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.Gateway == nil {
		return nil, status.Error(codes.Internal, "gateway not set")
	}
	action, products, err := protoToRequest(req)
	if err != nil {
		return nil, statusFromError(err)
	}
	result, err := s.Gateway.Run(ctx, action, products)
	if err != nil {
		slog.Warn("run action", "action", action, "backend", s.Gateway.Name(), "err", err)
		return nil, statusFromError(err)
	}
	out, err := structpb.NewStruct(result)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
