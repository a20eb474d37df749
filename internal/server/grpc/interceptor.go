package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/rpc"
	"github.com/dmitrijs2005/containertracker/internal/server/models"
)

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

var sessionMethods = map[string]bool{
	rpc.FullMethod(rpc.MethodValidateSession):   true,
	rpc.FullMethod(rpc.MethodInvalidateSession): true,
	rpc.FullMethod(rpc.MethodCreateEntry):       true,
	rpc.FullMethod(rpc.MethodListEntries):       true,
	rpc.FullMethod(rpc.MethodRequestDeletion):   true,
}

func (s *GRPCServer) sessionTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !sessionMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.SessionTokenHeaderName); len(values) > 0 {
			token = values[0]
		}
	}
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing session token")
	}

	user, err := s.users.Validate(ctx, token)
	if err != nil {
		s.logger.Debug(ctx, "session rejected", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	ctx = context.WithValue(ctx, userKey, user)
	ctx = context.WithValue(ctx, tokenKey, token)
	return handler(ctx, req)
}

func userFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}
