package rpc

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// StatusInfo is the decoded Status response.
type StatusInfo struct {
	Instance   string
	State      string
	StateSince string
	Username   string
	Uptime     time.Duration
	Indexed    int64
	Skipped    int64
	Failed     int64
}

// HitInfo is one decoded search hit.
type HitInfo struct {
	ID             uint32
	SenderID       string
	SenderName     string
	SenderUsername string
	Date           string
	Message        string
	Fragment       string
	Highlighted    bool
	Link           string
	Score          *float64
}

// SearchResponse is the decoded Search response.
type SearchResponse struct {
	ChatID   string
	Took     time.Duration
	TimedOut bool
	Total    int64
	Relation string
	Hits     []HitInfo
	Reply    string
}

// Client wraps the gRPC connection to a daemon.
type Client struct {
	conn   *grpc.ClientConn
	Health healthpb.HealthClient
}

// Dial connects to the daemon's Unix domain socket. The connection is made
// lazily on the first call.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn, Health: healthpb.NewHealthClient(conn)}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func withRequestID(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, RequestIDKey, uuid.NewString())
}

// Check returns the daemon's overall serving status.
func (c *Client) Check(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.Health.Check(withRequestID(ctx), &healthpb.HealthCheckRequest{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(withRequestID(ctx), MethodStatus, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	f := out.GetFields()
	return &StatusInfo{
		Instance:   f["instance"].GetStringValue(),
		State:      f["state"].GetStringValue(),
		StateSince: f["state_since"].GetStringValue(),
		Username:   f["username"].GetStringValue(),
		Uptime:     time.Duration(f["uptime_ms"].GetNumberValue()) * time.Millisecond,
		Indexed:    int64(f["indexed"].GetNumberValue()),
		Skipped:    int64(f["skipped"].GetNumberValue()),
		Failed:     int64(f["failed"].GetNumberValue()),
	}, nil
}

// Search runs keyword against chatID's messages.
func (c *Client) Search(ctx context.Context, chatID int64, keyword string) (*SearchResponse, error) {
	in, err := structpb.NewStruct(map[string]any{
		"chat_id": strconv.FormatInt(chatID, 10),
		"keyword": keyword,
	})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(withRequestID(ctx), MethodSearch, in, out); err != nil {
		return nil, err
	}
	return decodeSearch(out), nil
}

func decodeSearch(s *structpb.Struct) *SearchResponse {
	f := s.GetFields()
	resp := &SearchResponse{
		ChatID:   f["chat_id"].GetStringValue(),
		Took:     time.Duration(f["took_ms"].GetNumberValue()) * time.Millisecond,
		TimedOut: f["timed_out"].GetBoolValue(),
		Total:    int64(f["total"].GetNumberValue()),
		Relation: f["relation"].GetStringValue(),
		Reply:    f["reply"].GetStringValue(),
	}
	for _, v := range f["hits"].GetListValue().GetValues() {
		h := v.GetStructValue().GetFields()
		hit := HitInfo{
			ID:             uint32(h["id"].GetNumberValue()),
			SenderID:       h["sender_id"].GetStringValue(),
			SenderName:     h["sender_name"].GetStringValue(),
			SenderUsername: h["sender_username"].GetStringValue(),
			Date:           h["date"].GetStringValue(),
			Message:        h["message"].GetStringValue(),
			Fragment:       h["fragment"].GetStringValue(),
			Highlighted:    h["highlighted"].GetBoolValue(),
			Link:           h["link"].GetStringValue(),
		}
		if score, ok := h["score"].GetKind().(*structpb.Value_NumberValue); ok {
			hit.Score = &score.NumberValue
		}
		resp.Hits = append(resp.Hits, hit)
	}
	return resp
}
