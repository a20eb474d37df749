// Package grpc exposes the entry service of the development server.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/containertracker/internal/logging"
	"github.com/dmitrijs2005/containertracker/internal/metrics"
	"github.com/dmitrijs2005/containertracker/internal/ocr"
	"github.com/dmitrijs2005/containertracker/internal/rpc"
	"github.com/dmitrijs2005/containertracker/internal/server/entries"
	"github.com/dmitrijs2005/containertracker/internal/server/users"
)

// listEntriesLimit caps a ListEntries answer.
const listEntriesLimit = 100

type GRPCServer struct {
	address string
	users   *users.Service
	entries *entries.Service
	ocr     ocr.Extractor
	metrics *metrics.Server
	logger  logging.Logger
}

var _ rpc.EntryServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, us *users.Service, es *entries.Service, ex ocr.Extractor, m *metrics.Server) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		entries: es,
		ocr:     ex,
		metrics: m,
	}
}

// NewServer builds a grpc.Server with the service and its interceptors
// registered, without listening.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.sessionTokenInterceptor))
	rpc.RegisterEntryServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
