package grpc_control

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	datasource "signal-monitor/src/data_source"
	"signal-monitor/src/helpers"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"
	"signal-monitor/src/server"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// IMessageApplier applies a control message with the socket server's semantics.
type IMessageApplier interface {
	Apply(msg models.MControlMessage) error
}

// ControlService implements ControlServer
type ControlService struct {
	Applier    IMessageApplier
	Status     server.StatusSources
	DataSource *datasource.MultiSourceManager
	Logger     *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(applier IMessageApplier, sources server.StatusSources, ds *datasource.MultiSourceManager, log *logger.Logger) *ControlService {
	if log == nil {
		log = logger.NewLogger(nil, "GrpcControl")
	}
	return &ControlService{
		Applier:    applier,
		Status:     sources,
		DataSource: ds,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) SetInstrument(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.apply(models.MControlMessage{Type: models.ControlTypeCompany, Value: req.GetValue()})
}

// -----------------------------------------------------------------------------

func (s *ControlService) SetStrategy(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.apply(models.MControlMessage{Type: models.ControlTypeStrategy, Value: req.GetValue()})
}

func (s *ControlService) apply(msg models.MControlMessage) (*structpb.Struct, error) {
	if err := s.Applier.Apply(msg); err != nil {
		s.Logger.Warning("gRPC %s %q rejected: %v", msg.Type, msg.Value, err)
		return nil, toStatus(err)
	}
	return toStruct(s.Status.State.Snapshot())
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(server.BuildStatus(s.Status, time.Now()))
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSources(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	names := []interface{}{}
	if s.DataSource != nil {
		for _, src := range s.DataSource.GetAllSources() {
			names = append(names, src.Name())
		}
	}
	out, err := structpb.NewStruct(map[string]interface{}{"sources": names})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func toStatus(err error) error {
	switch {
	case errors.Is(err, helpers.ErrEmptyInstrument),
		errors.Is(err, helpers.ErrRejectedStrategy),
		errors.Is(err, helpers.ErrMalformedControlMessage):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// toStruct goes through JSON so the field names match the HTTP viewer.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
