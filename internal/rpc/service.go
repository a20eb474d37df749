package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "containertracker.v1.EntryService"

// Method names.
const (
	MethodLogin             = "Login"
	MethodValidateSession   = "ValidateSession"
	MethodInvalidateSession = "InvalidateSession"
	MethodCreateEntry       = "CreateEntry"
	MethodListEntries       = "ListEntries"
	MethodExtractText       = "ExtractText"
	MethodPing              = "Ping"
	MethodRequestDeletion   = "RequestDeletion"
)

// FullMethod returns the gRPC path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// EntryServiceServer is implemented by the entry service. Session-bound calls
// read the token from the incoming metadata.
type EntryServiceServer interface {
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	ValidateSession(ctx context.Context, req *Empty) (*ValidateSessionResponse, error)
	InvalidateSession(ctx context.Context, req *Empty) (*Empty, error)
	CreateEntry(ctx context.Context, req *CreateEntryRequest) (*CreateEntryResponse, error)
	ListEntries(ctx context.Context, req *Empty) (*ListEntriesResponse, error)
	ExtractText(ctx context.Context, req *ExtractTextRequest) (*ExtractTextResponse, error)
	Ping(ctx context.Context, req *Empty) (*Empty, error)
	RequestDeletion(ctx context.Context, req *RequestDeletionRequest) (*RequestDeletionResponse, error)
}

func unary[Req, Resp any](name string, call func(EntryServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, msg any) (any, error) {
				req := new(Req)
				if err := FromStruct(msg.(*structpb.Struct), req); err != nil {
					return nil, status.Error(codes.InvalidArgument, err.Error())
				}
				resp, err := call(srv.(EntryServiceServer), ctx, req)
				if err != nil {
					return nil, err
				}
				if resp == nil {
					resp = new(Resp)
				}
				out, err := ToStruct(resp)
				if err != nil {
					return nil, status.Error(codes.Internal, err.Error())
				}
				return out, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EntryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodLogin, EntryServiceServer.Login),
		unary(MethodValidateSession, EntryServiceServer.ValidateSession),
		unary(MethodInvalidateSession, EntryServiceServer.InvalidateSession),
		unary(MethodCreateEntry, EntryServiceServer.CreateEntry),
		unary(MethodListEntries, EntryServiceServer.ListEntries),
		unary(MethodExtractText, EntryServiceServer.ExtractText),
		unary(MethodPing, EntryServiceServer.Ping),
		unary(MethodRequestDeletion, EntryServiceServer.RequestDeletion),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "containertracker/v1/entry_service",
}

func RegisterEntryServiceServer(s grpc.ServiceRegistrar, srv EntryServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Invoke performs a typed unary call.
func Invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req *Req, opts ...grpc.CallOption) (*Resp, error) {
	in, err := ToStruct(req)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := FromStruct(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// EntryServiceClient is the typed client stub.
type EntryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewEntryServiceClient(cc grpc.ClientConnInterface) *EntryServiceClient {
	return &EntryServiceClient{cc: cc}
}

func (c *EntryServiceClient) Login(ctx context.Context, req *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return Invoke[LoginRequest, LoginResponse](ctx, c.cc, MethodLogin, req, opts...)
}

func (c *EntryServiceClient) ValidateSession(ctx context.Context, opts ...grpc.CallOption) (*ValidateSessionResponse, error) {
	return Invoke[Empty, ValidateSessionResponse](ctx, c.cc, MethodValidateSession, &Empty{}, opts...)
}

func (c *EntryServiceClient) InvalidateSession(ctx context.Context, opts ...grpc.CallOption) error {
	_, err := Invoke[Empty, Empty](ctx, c.cc, MethodInvalidateSession, &Empty{}, opts...)
	return err
}

func (c *EntryServiceClient) CreateEntry(ctx context.Context, req *CreateEntryRequest, opts ...grpc.CallOption) (*CreateEntryResponse, error) {
	return Invoke[CreateEntryRequest, CreateEntryResponse](ctx, c.cc, MethodCreateEntry, req, opts...)
}

func (c *EntryServiceClient) ListEntries(ctx context.Context, opts ...grpc.CallOption) (*ListEntriesResponse, error) {
	return Invoke[Empty, ListEntriesResponse](ctx, c.cc, MethodListEntries, &Empty{}, opts...)
}

func (c *EntryServiceClient) ExtractText(ctx context.Context, req *ExtractTextRequest, opts ...grpc.CallOption) (*ExtractTextResponse, error) {
	return Invoke[ExtractTextRequest, ExtractTextResponse](ctx, c.cc, MethodExtractText, req, opts...)
}

func (c *EntryServiceClient) Ping(ctx context.Context, opts ...grpc.CallOption) error {
	_, err := Invoke[Empty, Empty](ctx, c.cc, MethodPing, &Empty{}, opts...)
	return err
}

func (c *EntryServiceClient) RequestDeletion(ctx context.Context, req *RequestDeletionRequest, opts ...grpc.CallOption) (*RequestDeletionResponse, error) {
	return Invoke[RequestDeletionRequest, RequestDeletionResponse](ctx, c.cc, MethodRequestDeletion, req, opts...)
}
