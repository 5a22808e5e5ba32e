package rpc

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/tgsearch/internal/reply"
	"github.com/matheus3301/tgsearch/internal/search"
	"github.com/matheus3301/tgsearch/internal/status"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Searcher runs keyword queries. The dispatcher implements it so control
// plane searches drive engine health like chat searches do.
type Searcher interface {
	Search(ctx context.Context, chatID int64, keyword string) (*search.Result, error)
}

// StatsSource reports indexing counters.
type StatsSource interface {
	Stats() search.IndexStats
}

// BotInfo reports the connected bot identity.
type BotInfo interface {
	Username() string
}

// ControlService implements ControlServer.
type ControlService struct {
	instance  string
	startedAt time.Time
	machine   *status.Machine
	searcher  Searcher
	stats     StatsSource
	bot       BotInfo
}

// NewControlService creates the control service. stats and bot may be nil.
func NewControlService(instance string, machine *status.Machine, searcher Searcher, stats StatsSource, bot BotInfo) *ControlService {
	return &ControlService{
		instance:  instance,
		startedAt: time.Now(),
		machine:   machine,
		searcher:  searcher,
		stats:     stats,
		bot:       bot,
	}
}

func (s *ControlService) Status(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	fields := map[string]any{
		"instance":    s.instance,
		"state":       string(s.machine.Current()),
		"state_since": s.machine.Since().UTC().Format(time.RFC3339),
		"uptime_ms":   time.Since(s.startedAt).Milliseconds(),
		"username":    "",
		"indexed":     int64(0),
		"skipped":     int64(0),
		"failed":      int64(0),
	}
	if s.bot != nil {
		fields["username"] = s.bot.Username()
	}
	if s.stats != nil {
		st := s.stats.Stats()
		fields["indexed"] = st.Indexed
		fields["skipped"] = st.Skipped
		fields["failed"] = st.Failed
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode status: %v", err)
	}
	return out, nil
}

func (s *ControlService) Search(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	chatID, err := chatIDField(in)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "%v", err)
	}
	keyword := strings.TrimSpace(in.GetFields()["keyword"].GetStringValue())
	if keyword == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, reply.UsageHint)
	}

	res, err := s.searcher.Search(ctx, chatID, keyword)
	if err != nil {
		var engineErr *search.EngineError
		if errors.As(err, &engineErr) {
			return nil, grpcstatus.Errorf(codes.Unavailable, "%v", err)
		}
		return nil, grpcstatus.Errorf(codes.Internal, "search: %v", err)
	}

	out, err := structpb.NewStruct(resultFields(chatID, res))
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}

// chatIDField accepts chat_id as a decimal string, or a number for ids that
// fit a float64 exactly.
func chatIDField(in *structpb.Struct) (int64, error) {
	v, ok := in.GetFields()["chat_id"]
	if !ok {
		return 0, errors.New("chat_id is required")
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		id, err := strconv.ParseInt(strings.TrimSpace(k.StringValue), 10, 64)
		if err != nil {
			return 0, errors.New("chat_id must be an integer")
		}
		return id, nil
	case *structpb.Value_NumberValue:
		id := int64(k.NumberValue)
		if float64(id) != k.NumberValue {
			return 0, errors.New("chat_id must be an integer")
		}
		return id, nil
	default:
		return 0, errors.New("chat_id must be a string or number")
	}
}

func resultFields(chatID int64, res *search.Result) map[string]any {
	hits := make([]any, 0, len(res.Hits.Hits))
	for i := range res.Hits.Hits {
		h := &res.Hits.Hits[i]
		fragment, highlighted := h.Fragment()
		hit := map[string]any{
			"id":          h.Source.ID,
			"sender_id":   strconv.FormatInt(h.Source.SenderID, 10),
			"sender_name": h.Source.SenderName,
			"date":        h.Source.Date,
			"message":     h.Source.Message,
			"fragment":    fragment,
			"highlighted": highlighted,
			"link":        reply.Link(chatID, h.DocID()),
			"score":       nil,
		}
		if h.Source.SenderUsername != nil {
			hit["sender_username"] = *h.Source.SenderUsername
		}
		if h.Score != nil {
			hit["score"] = *h.Score
		}
		hits = append(hits, hit)
	}
	return map[string]any{
		"chat_id":   strconv.FormatInt(chatID, 10),
		"took_ms":   res.Took,
		"timed_out": res.TimedOut,
		"total":     res.Hits.Total.Value,
		"relation":  res.Hits.Total.Relation,
		"hits":      hits,
		"reply":     reply.Format(chatID, res),
	}
}
