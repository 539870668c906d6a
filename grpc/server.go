// Package grpc exposes stored thread transcripts over gRPC.
//
// The service is described by hand with well-known protobuf types so no
// generated code is needed:
//
//	auditlog.TranscriptService/ResolveThread(StringValue starterId) -> Struct{threadId, path, archived, pageCount}
//	auditlog.TranscriptService/GetTranscriptPage(Struct{starterId, page}) -> Struct{page, pageCount, blocks}
package grpc

import (
	"context"
	"errors"
	"log"
	"net"

	"discord-logbot/database/history"
	"discord-logbot/models"
	"discord-logbot/transcript"

	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName             = "auditlog.TranscriptService"
	resolveThreadMethod     = "/" + ServiceName + "/ResolveThread"
	getTranscriptPageMethod = "/" + ServiceName + "/GetTranscriptPage"
)

// TranscriptSource resolves a starter message to its paginated transcript.
type TranscriptSource interface {
	Transcript(starterID string) (*models.ThreadIndexEntry, []transcript.Page, error)
}

// NotFoundFunc reports whether an error from the source means "no such
// transcript".
type NotFoundFunc func(error) bool

// TranscriptServer is the server API of the transcript service.
type TranscriptServer interface {
	ResolveThread(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
	GetTranscriptPage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// Service implements TranscriptServer on top of a TranscriptSource.
type Service struct {
	source   TranscriptSource
	notFound NotFoundFunc
}

func NewService(source TranscriptSource, notFound NotFoundFunc) *Service {
	if notFound == nil {
		notFound = func(error) bool { return false }
	}
	return &Service{source: source, notFound: notFound}
}

func (s *Service) load(starterID string) (*models.ThreadIndexEntry, []transcript.Page, error) {
	if starterID == "" {
		return nil, nil, status.Error(codes.InvalidArgument, "starterId is required")
	}
	entry, pages, err := s.source.Transcript(starterID)
	if err != nil {
		if s.notFound(err) {
			return nil, nil, status.Errorf(codes.NotFound, "%s: %v", starterID, err)
		}
		log.Printf("[grpc] transcript lookup for %s failed: %v", starterID, err)
		return nil, nil, status.Errorf(codes.Internal, "failed to load transcript: %v", err)
	}
	return entry, pages, nil
}

func (s *Service) ResolveThread(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	entry, pages, err := s.load(in.GetValue())
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{
		"threadId":  entry.ThreadID,
		"path":      entry.Path,
		"archived":  history.IsArchivedPath(entry.Path),
		"pageCount": len(pages),
	})
}

func (s *Service) GetTranscriptPage(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	starterID := in.GetFields()["starterId"].GetStringValue()
	page := int(in.GetFields()["page"].GetNumberValue())

	_, pages, err := s.load(starterID)
	if err != nil {
		return nil, err
	}
	blocks := []any{}
	if len(pages) > 0 {
		page = transcript.ClampPage(page, len(pages))
		for _, b := range pages[page].Blocks {
			blocks = append(blocks, b)
		}
	} else {
		page = 0
	}
	return structpb.NewStruct(map[string]any{
		"page":      page,
		"pageCount": len(pages),
		"blocks":    blocks,
	})
}

func resolveThreadHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranscriptServer).ResolveThread(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: resolveThreadMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TranscriptServer).ResolveThread(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getTranscriptPageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranscriptServer).GetTranscriptPage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getTranscriptPageMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TranscriptServer).GetTranscriptPage(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// TranscriptServiceDesc is the grpc.ServiceDesc of the transcript service.
var TranscriptServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TranscriptServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ResolveThread", Handler: resolveThreadHandler},
		{MethodName: "GetTranscriptPage", Handler: getTranscriptPageHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auditlog/transcript.proto",
}

// Register adds srv to s.
func Register(s grpc.ServiceRegistrar, srv TranscriptServer) {
	s.RegisterService(&TranscriptServiceDesc, srv)
}

// Server runs the transcript service on a listener.
type Server struct {
	grpcServer *grpc.Server
}

// NewServer creates a gRPC server serving svc.
func NewServer(svc TranscriptServer) *Server {
	gs := grpc.NewServer()
	Register(gs, svc)
	return &Server{grpcServer: gs}
}

// Serve blocks serving lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	log.Printf("[grpc] transcript service listening on %s", lis.Addr())
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop waits for in-flight calls and stops the server.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
