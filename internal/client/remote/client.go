// Package remote is the typed client of the entry service: one method per
// remote operation, sentinel errors for the failure classes callers act on.
package remote

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/rpc"
)

// Client lists the remote operations used by the client core.
type Client interface {
	CreateEntry(ctx context.Context, token string, fields models.EntryFields) error
	ValidateSession(ctx context.Context, token string) (*models.Session, bool, error)
	Login(ctx context.Context, name, code string) (*models.Session, error)
	InvalidateSession(ctx context.Context, token string) error
	ExtractText(ctx context.Context, kind, image string) (string, error)
	ListEntries(ctx context.Context, token string) ([]*models.CachedEntry, error)
	RequestDeletion(ctx context.Context, token, entryID string) error
	Ping(ctx context.Context) error
	Close() error
}

type tokenKey struct{}

// withToken marks ctx so the interceptor attaches token to the call.
func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func sessionTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token, _ := ctx.Value(tokenKey{}).(string); token != "" {
		md, _ := metadata.FromOutgoingContext(ctx)
		md = md.Copy()
		if md == nil {
			md = metadata.MD{}
		}
		md.Set(common.SessionTokenHeaderName, token)
		ctx = metadata.NewOutgoingContext(ctx, md)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

type GRPCClient struct {
	conn   *grpc.ClientConn
	client *rpc.EntryServiceClient
}

var _ Client = (*GRPCClient)(nil)

// NewGRPCClient connects lazily to endpointURL. Extra options are appended
// after the defaults, tests use them to plug in an in-memory dialer.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(sessionTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{conn: conn, client: rpc.NewEntryServiceClient(conn)}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) CreateEntry(ctx context.Context, token string, f models.EntryFields) error {
	req := &rpc.CreateEntryRequest{Entry: rpc.NewEntry{
		ClientEntryID:         f.ClientEntryID,
		ContainerNumber:       f.ContainerNumber,
		SecondContainerNumber: f.SecondContainerNumber,
		Size:                  string(f.Size),
		ContainerImage:        f.ContainerImage,
		LicensePlateNumber:    f.LicensePlateNumber,
		EntryType:             string(f.EntryType),
		UserID:                f.UserID,
		UserName:              f.UserName,
		CreatedAt:             f.CreatedAt,
	}}
	if _, err := c.client.CreateEntry(withToken(ctx, token), req); err != nil {
		return mapError(err)
	}
	return nil
}

// ValidateSession reports (nil, false, nil) when the server rejects the token
// and a non-nil error only when the answer is unknown.
func (c *GRPCClient) ValidateSession(ctx context.Context, token string) (*models.Session, bool, error) {
	resp, err := c.client.ValidateSession(withToken(ctx, token))
	if err != nil {
		if status.Code(err) == codes.Unauthenticated {
			return nil, false, nil
		}
		return nil, false, mapError(err)
	}
	if !resp.Valid {
		return nil, false, nil
	}
	s := &models.Session{Token: token}
	if resp.User != nil {
		s.ID, s.Name, s.StaffID, s.Role = resp.User.ID, resp.User.Name, resp.User.StaffID, resp.User.Role
	}
	return s, true, nil
}

func (c *GRPCClient) Login(ctx context.Context, name, code string) (*models.Session, error) {
	resp, err := c.client.Login(ctx, &rpc.LoginRequest{Name: name, Code: code})
	if err != nil {
		return nil, mapError(err)
	}
	return &models.Session{
		ID:        resp.User.ID,
		Name:      resp.User.Name,
		StaffID:   resp.User.StaffID,
		Role:      resp.User.Role,
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

func (c *GRPCClient) InvalidateSession(ctx context.Context, token string) error {
	return mapError(c.client.InvalidateSession(withToken(ctx, token)))
}

// ExtractText returns common.UnableToRead when the image cannot be read.
func (c *GRPCClient) ExtractText(ctx context.Context, kind, image string) (string, error) {
	resp, err := c.client.ExtractText(ctx, &rpc.ExtractTextRequest{Kind: kind, Image: image})
	if err != nil {
		return "", mapError(err)
	}
	if resp.Text == "" {
		return common.UnableToRead, nil
	}
	return resp.Text, nil
}

func (c *GRPCClient) ListEntries(ctx context.Context, token string) ([]*models.CachedEntry, error) {
	resp, err := c.client.ListEntries(withToken(ctx, token))
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]*models.CachedEntry, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		out = append(out, &models.CachedEntry{
			ID:                    e.ID,
			ContainerNumber:       e.ContainerNumber,
			SecondContainerNumber: e.SecondContainerNumber,
			Size:                  models.ContainerSize(e.Size),
			UserName:              e.UserName,
			UserID:                e.UserID,
			CreatedAt:             e.CreatedAt,
			ContainerImage:        e.ContainerImage,
			LicensePlateNumber:    e.LicensePlateNumber,
			EntryType:             models.EntryType(e.EntryType),
			DeletionRequested:     e.DeletionRequested,
		})
	}
	return out, nil
}

// RequestDeletion asks the server to flag entryID for removal. Repeating the
// request for an already flagged entry is not an error.
func (c *GRPCClient) RequestDeletion(ctx context.Context, token, entryID string) error {
	_, err := c.client.RequestDeletion(withToken(ctx, token), &rpc.RequestDeletionRequest{EntryID: entryID})
	return mapError(err)
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	return mapError(c.client.Ping(ctx))
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition, codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrRateLimited, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
