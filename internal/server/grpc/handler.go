package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/ocr"
	"github.com/dmitrijs2005/containertracker/internal/rpc"
	"github.com/dmitrijs2005/containertracker/internal/server/entries"
	"github.com/dmitrijs2005/containertracker/internal/server/models"
	"github.com/dmitrijs2005/containertracker/internal/server/users"
)

func toUser(u *models.User) rpc.User {
	return rpc.User{ID: u.ID, Name: u.Name, StaffID: u.StaffID, Role: u.Role}
}

func (s *GRPCServer) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.LoginResponse, error) {

	sess, err := s.users.Login(ctx, req.Name, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrRateLimited):
			s.metrics.Login("limited")
			return nil, status.Error(codes.ResourceExhausted, "too many login attempts, try again in a minute")
		case errors.Is(err, common.ErrUnauthorized):
			s.metrics.Login("denied")
			return nil, status.Error(codes.Unauthenticated, "invalid name or code")
		}
		s.logger.Error(ctx, "login failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	s.metrics.Login("ok")
	s.logger.Info(ctx, "Logged in", "user", sess.User.Name)
	return &rpc.LoginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: toUser(sess.User)}, nil
}

func (s *GRPCServer) ValidateSession(ctx context.Context, _ *rpc.Empty) (*rpc.ValidateSessionResponse, error) {
	u := userFrom(ctx)
	if u == nil {
		return &rpc.ValidateSessionResponse{}, nil
	}
	user := toUser(u)
	return &rpc.ValidateSessionResponse{Valid: true, User: &user}, nil
}

func (s *GRPCServer) InvalidateSession(ctx context.Context, _ *rpc.Empty) (*rpc.Empty, error) {
	if err := s.users.Invalidate(ctx, tokenFrom(ctx)); err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	return &rpc.Empty{}, nil
}

func (s *GRPCServer) CreateEntry(ctx context.Context, req *rpc.CreateEntryRequest) (*rpc.CreateEntryResponse, error) {
	in := req.Entry
	e := models.Entry{
		ClientEntryID:         in.ClientEntryID,
		ContainerNumber:       in.ContainerNumber,
		SecondContainerNumber: in.SecondContainerNumber,
		Size:                  in.Size,
		ContainerImage:        in.ContainerImage,
		LicensePlateNumber:    in.LicensePlateNumber,
		EntryType:             in.EntryType,
		UserID:                in.UserID,
		UserName:              in.UserName,
		CreatedAt:             in.CreatedAt,
	}
	// entries captured offline keep the user who captured them
	if u := userFrom(ctx); u != nil && e.UserID == "" {
		e.UserID, e.UserName = u.ID, u.Name
	}

	id, dup, err := s.entries.Create(ctx, e)
	if err != nil {
		if errors.Is(err, entries.ErrInvalidEntry) {
			s.metrics.Entry("rejected")
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error(ctx, "create entry failed", "error", err)
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	if dup {
		s.metrics.Entry("duplicate")
	} else {
		s.metrics.Entry("created")
	}
	return &rpc.CreateEntryResponse{ID: id, Duplicate: dup}, nil
}

func (s *GRPCServer) ListEntries(ctx context.Context, _ *rpc.Empty) (*rpc.ListEntriesResponse, error) {
	list, err := s.entries.List(ctx, listEntriesLimit)
	if err != nil {
		s.logger.Error(ctx, "list entries failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	out := make([]rpc.Entry, 0, len(list))
	for _, e := range list {
		var requestedAt *time.Time
		if e.DeletionRequested {
			at := e.DeletionRequestedAt
			requestedAt = &at
		}
		out = append(out, rpc.Entry{
			ID:                    e.ID,
			ContainerNumber:       e.ContainerNumber,
			SecondContainerNumber: e.SecondContainerNumber,
			Size:                  e.Size,
			ContainerImage:        e.ContainerImage,
			LicensePlateNumber:    e.LicensePlateNumber,
			EntryType:             e.EntryType,
			UserID:                e.UserID,
			UserName:              e.UserName,
			CreatedAt:             e.CreatedAt,
			DeletionRequested:     e.DeletionRequested,
			DeletionRequestedBy:   e.DeletionRequestedBy,
			DeletionRequestedAt:   requestedAt,
		})
	}
	return &rpc.ListEntriesResponse{Entries: out}, nil
}

func (s *GRPCServer) RequestDeletion(ctx context.Context, req *rpc.RequestDeletionRequest) (*rpc.RequestDeletionResponse, error) {
	if req.EntryID == "" {
		return nil, status.Error(codes.InvalidArgument, "entry_id is required")
	}
	var by string
	if u := userFrom(ctx); u != nil {
		by = u.Name
	}

	already, err := s.entries.RequestDeletion(ctx, req.EntryID, by)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "entry not found")
		}
		s.logger.Error(ctx, "request deletion failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &rpc.RequestDeletionResponse{AlreadyRequested: already}, nil
}

func (s *GRPCServer) ExtractText(ctx context.Context, req *rpc.ExtractTextRequest) (*rpc.ExtractTextResponse, error) {
	if s.ocr == nil {
		return &rpc.ExtractTextResponse{Text: common.UnableToRead}, nil
	}

	text, err := s.ocr.Extract(ctx, req.Kind, req.Image)
	if err != nil {
		if errors.Is(err, ocr.ErrInvalidImage) || errors.Is(err, ocr.ErrUnknownKind) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Warn(ctx, "text extraction failed", "kind", req.Kind, "error", err)
		return nil, status.Error(codes.Unavailable, "text extraction failed")
	}
	return &rpc.ExtractTextResponse{Text: text}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *rpc.Empty) (*rpc.Empty, error) {
	return &rpc.Empty{}, nil
}
