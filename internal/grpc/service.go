package grpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"combatsim/broker/internal/catalog"
	"combatsim/broker/internal/combat"
	"combatsim/broker/internal/logging"
	"combatsim/broker/internal/simulation"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "combatsim.v1.Simulator"

// SimulateMethod is the full method path of the streaming simulate call.
const SimulateMethod = "/" + ServiceName + "/Simulate"

const defaultProgressInterval = 100 * time.Millisecond

// Frame types carried in the "type" field of every response.
const (
	FrameProgress = "progress"
	FrameResult   = "result"
)

// SimulatorServer is the server API of combatsim.v1.Simulator.
type SimulatorServer interface {
	Simulate(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// ServiceDesc describes combatsim.v1.Simulator. Requests and responses are
// google.protobuf.Struct messages carrying the JSON shapes of the HTTP API.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulatorServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Simulate",
			Handler:       simulateHandler,
			ServerStreams: true,
		},
	},
	Metadata: "combatsim/v1/simulator.proto",
}

func simulateHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(SimulatorServer).Simulate(req, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// RegisterSimulatorServer attaches the simulator to a gRPC server.
func RegisterSimulatorServer(registrar grpc.ServiceRegistrar, srv SimulatorServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// SimulatorClient calls combatsim.v1.Simulator.
type SimulatorClient struct {
	cc grpc.ClientConnInterface
}

// NewSimulatorClient wraps a client connection.
func NewSimulatorClient(cc grpc.ClientConnInterface) *SimulatorClient {
	return &SimulatorClient{cc: cc}
}

// Simulate opens the server stream for one run.
func (c *SimulatorClient) Simulate(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], SimulateMethod, opts...)
	if err != nil {
		return nil, err
	}
	client := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := client.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := client.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return client, nil
}

// Option customises the behaviour of the gRPC simulation service.
type Option func(*Service)

// WithProgressInterval bounds how often progress frames are streamed.
func WithProgressInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval >= 0 {
			s.progressInterval = interval
		}
	}
}

// WithClock overrides the time source used for progress throttling (used in tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service implements SimulatorServer on top of a simulation runner.
type Service struct {
	runner           *simulation.Runner
	catalog          *catalog.Catalog
	logger           *logging.Logger
	progressInterval time.Duration
	now              func() time.Time
}

// NewService wires the gRPC service to the runner and catalog.
func NewService(runner *simulation.Runner, cat *catalog.Catalog, opts ...Option) *Service {
	service := &Service{
		runner:           runner,
		catalog:          cat,
		logger:           logging.L(),
		progressInterval: defaultProgressInterval,
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(service)
		}
	}
	return service
}

// Simulate runs one simulation, streaming throttled progress frames followed by the result.
func (s *Service) Simulate(in *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	if s == nil || s.runner == nil || s.catalog == nil {
		return status.Error(codes.FailedPrecondition, "simulation unavailable")
	}
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()
	logger := s.logger
	if logging.TraceIDFromContext(ctx) != "" {
		logger = logging.LoggerFromContext(ctx)
	}

	//1.- Decode the struct through its JSON form so the HTTP validation applies unchanged.
	req, err := decodeRequest(in)
	if err != nil {
		return toStatus(err)
	}

	//2.- Progress frames are best effort; a failed send cancels the run.
	var (
		lastProgress time.Time
		sendErr      error
	)
	opts := req.Options()
	opts.OnProgress = func(p simulation.Progress) {
		now := s.now()
		if sendErr != nil || (p.Completed < p.Requested && now.Sub(lastProgress) < s.progressInterval) {
			return
		}
		lastProgress = now
		if err := sendFrame(stream, FrameProgress, p); err != nil {
			sendErr = err
			cancel()
		}
	}

	result, err := s.runner.Simulate(ctx, s.catalog, req.Config, opts)
	if err != nil {
		if combat.IsConfigError(err) {
			logger.Info("grpc simulation rejected", logging.Error(err))
		}
		if errors.Is(err, simulation.ErrUnexpected) {
			logger.Error("grpc simulation failed", logging.Error(err))
		}
		return toStatus(err)
	}
	if sendErr != nil {
		return sendErr
	}
	//3.- A client that went away gets a status rather than a partial result.
	if stream.Context().Err() != nil {
		if errors.Is(stream.Context().Err(), context.DeadlineExceeded) {
			return status.Error(codes.DeadlineExceeded, "stream deadline exceeded")
		}
		return status.Error(codes.Canceled, "stream cancelled")
	}
	return sendFrame(stream, FrameResult, result)
}

func decodeRequest(in *structpb.Struct) (simulation.Request, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	payload, err := in.MarshalJSON()
	if err != nil {
		return simulation.Request{}, &combat.ConfigError{Field: "body", Reason: err.Error(), Err: err}
	}
	return simulation.DecodeRequest(bytes.NewReader(payload))
}

func sendFrame(stream grpc.ServerStreamingServer[structpb.Struct], frameType string, body any) error {
	frame, err := EncodeFrame(frameType, body)
	if err != nil {
		return status.Errorf(codes.Internal, "encode %s frame: %v", frameType, err)
	}
	return stream.Send(frame)
}

// EncodeFrame wraps body under its frame type key, e.g. {"type":"result","result":{...}}.
func EncodeFrame(frameType string, body any) (*structpb.Struct, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", frameType, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", frameType, err)
	}
	return structpb.NewStruct(map[string]any{"type": frameType, frameType: fields})
}

// DecodeFrame extracts the frame type and unmarshals its body into out.
func DecodeFrame(frame *structpb.Struct, out any) (string, error) {
	if frame == nil {
		return "", errors.New("nil frame")
	}
	frameType := frame.GetFields()["type"].GetStringValue()
	body, ok := frame.GetFields()[frameType]
	if !ok {
		return frameType, fmt.Errorf("frame %q has no body", frameType)
	}
	raw, err := body.MarshalJSON()
	if err != nil {
		return frameType, fmt.Errorf("marshal %s body: %w", frameType, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return frameType, fmt.Errorf("decode %s body: %w", frameType, err)
	}
	return frameType, nil
}

// toStatus maps simulation errors onto gRPC codes without leaking unexpected causes.
func toStatus(err error) error {
	var configErr *combat.ConfigError
	switch {
	case errors.As(err, &configErr):
		return status.Error(codes.InvalidArgument, configErr.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "stream cancelled")
	default:
		return status.Error(codes.Internal, simulation.ErrUnexpected.Error())
	}
}

var _ SimulatorServer = (*Service)(nil)
