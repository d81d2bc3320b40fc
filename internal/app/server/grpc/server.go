// Package grpc exposes the code service over gRPC. Requests and responses
// are google.protobuf.Struct messages on a hand registered service, so no
// generated stubs are needed.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atinyakov/go-qr-expiry/internal/app/service"
	"github.com/atinyakov/go-qr-expiry/internal/intercepters"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "qrcodes.v1.Codes"

// FullMethod returns "/qrcodes.v1.Codes/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// CodesServer is the server side of qrcodes.v1.Codes.
type CodesServer interface {
	Issue(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Resolve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListActive(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(CodesServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CodesServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CodesServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes qrcodes.v1.Codes for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CodesServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Issue", Handler: unaryHandler("Issue", CodesServer.Issue)},
		{MethodName: "Resolve", Handler: unaryHandler("Resolve", CodesServer.Resolve)},
		{MethodName: "ListActive", Handler: unaryHandler("ListActive", CodesServer.ListActive)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "qrcodes/v1/codes.proto",
}

// Server wraps the gRPC server and dependencies.
type Server struct {
	grpcServer *grpc.Server
	port       int
	logger     *zap.Logger
}

// New creates a gRPC server for svc. ListActive is limited to trusted.
func New(svc service.CodeServiceIface, trusted *net.IPNet, logger *zap.Logger, port int) *Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(intercepters.InterceptorLogger(logger)),
			intercepters.SubnetIPInterceptor,
			intercepters.TrustedSubnetInterceptor(trusted, FullMethod("ListActive")),
		),
	)

	s.RegisterService(&ServiceDesc, &CodesService{Service: svc})

	return &Server{
		grpcServer: s,
		port:       port,
		logger:     logger,
	}
}

// Start listens on the configured port and serves until stopped.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		s.logger.Error("gRPC server failed to listen:", zap.Error(err))
		return err
	}

	s.logger.Info("gRPC server listening on port", zap.Int("port", s.port))
	return s.Serve(lis)
}

// Serve accepts connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// GracefulStop shuts down the server gracefully.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// CodesService implements CodesServer on top of the code service.
type CodesService struct {
	Service service.CodeServiceIface
}

// Issue expects {"url", "expires"} and returns {"id", "qr_code_url", "expires_at"}.
func (s *CodesService) Issue(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	issued, err := s.Service.Issue(ctx, stringField(in, "url"), stringField(in, "expires"))
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{
		"id":          issued.ID,
		"qr_code_url": issued.ArtifactPath,
		"expires_at":  issued.ExpiresAt.Format(time.RFC3339),
	})
}

// Resolve expects {"doc_id"} and returns {"target"}.
func (s *CodesService) Resolve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	target, err := s.Service.Resolve(ctx, stringField(in, "doc_id"))
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{"target": target})
}

// ListActive returns {"codes": [{"id", "target", "expires_at", "created_at"}]}.
func (s *CodesService) ListActive(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	records, err := s.Service.Active(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	list := make([]any, 0, len(records))
	for _, r := range records {
		list = append(list, map[string]any{
			"id":         r.ID,
			"target":     r.Target,
			"expires_at": r.ExpiresAt.Format(time.RFC3339),
			"created_at": r.CreatedAt.Format(time.RFC3339),
		})
	}

	return structpb.NewStruct(map[string]any{"codes": list})
}

func stringField(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func toStatus(err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		return status.Error(codes.Internal, "internal error")
	}

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, se.Msg)
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, se.Msg)
	case errors.Is(err, service.ErrExpired):
		return status.Error(codes.FailedPrecondition, se.Msg)
	case errors.Is(err, service.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, se.Msg)
	default:
		return status.Error(codes.Internal, se.Msg)
	}
}
