package intercepters

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/atinyakov/go-qr-expiry/internal/middleware"
)

type contextKey string

// RealIPKey holds the caller address taken from x-real-ip metadata.
const RealIPKey contextKey = "real-ip"

// SubnetIPInterceptor copies the x-real-ip metadata value into the context.
func SubnetIPInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if ips := md.Get("x-real-ip"); len(ips) > 0 {
			ctx = context.WithValue(ctx, RealIPKey, ips[0])
		}
	}
	return handler(ctx, req)
}

// TrustedSubnetInterceptor rejects calls to the listed full method names
// unless the caller address is inside network. Run it after SubnetIPInterceptor.
func TrustedSubnetInterceptor(network *net.IPNet, methods ...string) grpc.UnaryServerInterceptor {
	guarded := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		guarded[m] = struct{}{}
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := guarded[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		ip, _ := ctx.Value(RealIPKey).(string)
		if !middleware.Trusted(network, ip) {
			return nil, status.Error(codes.PermissionDenied, "caller is not in the trusted subnet")
		}
		return handler(ctx, req)
	}
}
