package grpc

import (
	"context"
	"fmt"
	"log"
	"time"

	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ThreadInfo is the result of ResolveThread.
type ThreadInfo struct {
	ThreadID  string
	Path      string
	Archived  bool
	PageCount int
}

// TranscriptPage is the result of GetTranscriptPage.
type TranscriptPage struct {
	Page      int
	PageCount int
	Blocks    []string
}

// Client 封装 gRPC 客户端连接
type Client struct {
	conn          *grpc.ClientConn
	serverAddress string
	timeout       time.Duration
}

// NewClient 创建新的 gRPC 客户端
func NewClient(serverAddress string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(serverAddress, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", serverAddress, err)
	}
	return &Client{conn: conn, serverAddress: serverAddress, timeout: timeout}, nil
}

// Close 关闭 gRPC 连接
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ResolveThread looks up the thread transcript of a starter message.
func (c *Client) ResolveThread(ctx context.Context, starterID string) (*ThreadInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, resolveThreadMethod, wrapperspb.String(starterID), out); err != nil {
		log.Printf("Error resolving thread for %s from %s: %v", starterID, c.serverAddress, err)
		return nil, err
	}
	f := out.GetFields()
	return &ThreadInfo{
		ThreadID:  f["threadId"].GetStringValue(),
		Path:      f["path"].GetStringValue(),
		Archived:  f["archived"].GetBoolValue(),
		PageCount: int(f["pageCount"].GetNumberValue()),
	}, nil
}

// GetTranscriptPage fetches one rendered page of a starter's transcript.
func (c *Client) GetTranscriptPage(ctx context.Context, starterID string, page int) (*TranscriptPage, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	in, err := structpb.NewStruct(map[string]any{"starterId": starterID, "page": page})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, getTranscriptPageMethod, in, out); err != nil {
		log.Printf("Error fetching transcript page %d for %s from %s: %v", page, starterID, c.serverAddress, err)
		return nil, err
	}
	f := out.GetFields()
	res := &TranscriptPage{
		Page:      int(f["page"].GetNumberValue()),
		PageCount: int(f["pageCount"].GetNumberValue()),
	}
	for _, v := range f["blocks"].GetListValue().GetValues() {
		res.Blocks = append(res.Blocks, v.GetStringValue())
	}
	return res, nil
}
