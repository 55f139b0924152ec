package rpc

import (
	"context"
	"strings"

	"quiz-engine/internal/constants"
	"quiz-engine/internal/middleware"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type playerKey struct{}

// PlayerInterceptor resolves the player id from call metadata the same way
// middleware.PlayerAuth does for HTTP. Calls outside the quiz engine service,
// such as health checks and reflection, pass through untouched.
func PlayerInterceptor(secret string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)

		if secret == "" {
			playerID := firstValue(md, "x-user-id")
			if playerID == "" {
				playerID = constants.GuestPlayerID
			}
			return handler(context.WithValue(ctx, playerKey{}, playerID), req)
		}

		parts := strings.SplitN(firstValue(md, "authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return nil, status.Error(codes.Unauthenticated, "authorization metadata is required")
		}

		claims, err := middleware.ParsePlayerToken(parts[1], secret)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(context.WithValue(ctx, playerKey{}, claims.PlayerID), req)
	}
}

func PlayerID(ctx context.Context) string {
	if playerID, ok := ctx.Value(playerKey{}).(string); ok {
		return playerID
	}
	return constants.GuestPlayerID
}

func firstValue(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
