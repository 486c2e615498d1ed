package grpc

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"combatsim/broker/internal/catalog"
	"combatsim/broker/internal/logging"
	"combatsim/broker/internal/simulation"
)

func startSimulator(t *testing.T, opts ...Option) *SimulatorClient {
	t.Helper()
	logger := logging.NewTestLogger()
	runner := simulation.NewRunner(simulation.WithLogger(logger), simulation.WithBatchSize(10))
	service := NewService(runner, catalog.Default(), append([]Option{WithLogger(logger)}, opts...)...)

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	RegisterSimulatorServer(server, service)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewSimulatorClient(conn)
}

func mercenaryStruct(t *testing.T, trials int) *structpb.Struct {
	t.Helper()
	req, err := structpb.NewStruct(map[string]any{
		"bot":     "G-34 Mercenary",
		"weapons": []any{map[string]any{"name": "Assault Rifle", "count": 2}},
		"trials":  trials,
		"seed":    11,
	})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return req
}

// collect drains the stream into progress frames and the final result.
func collect(t *testing.T, stream grpc.ServerStreamingClient[structpb.Struct]) ([]simulation.Progress, *simulation.Result, error) {
	t.Helper()
	var (
		progress []simulation.Progress
		result   *simulation.Result
	)
	for {
		frame, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return progress, result, nil
		}
		if err != nil {
			return progress, result, err
		}
		switch frame.GetFields()["type"].GetStringValue() {
		case FrameProgress:
			var p simulation.Progress
			if _, err := DecodeFrame(frame, &p); err != nil {
				t.Fatalf("decode progress: %v", err)
			}
			progress = append(progress, p)
		case FrameResult:
			result = &simulation.Result{}
			if _, err := DecodeFrame(frame, result); err != nil {
				t.Fatalf("decode result: %v", err)
			}
		default:
			t.Fatalf("unexpected frame %v", frame)
		}
	}
}

func TestSimulateStreamsProgressAndResult(t *testing.T) {
	client := startSimulator(t, WithProgressInterval(0))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stream, err := client.Simulate(ctx, mercenaryStruct(t, 50))
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	progress, result, err := collect(t, stream)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if result == nil || result.Status != simulation.StatusCompleted || result.TrialsCompleted != 50 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.KillVolleys.Total() != 50 || result.Seed != 11 {
		t.Fatalf("unexpected histogram or seed: %+v", result)
	}
	if len(progress) != 5 {
		t.Fatalf("expected one progress frame per batch, got %d", len(progress))
	}
	for i, p := range progress {
		if p.RunID != result.RunID || p.Completed != (i+1)*10 || p.Requested != 50 {
			t.Fatalf("unexpected progress %d: %+v", i, p)
		}
	}
}

func TestSimulateThrottlesProgress(t *testing.T) {
	fixed := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	client := startSimulator(t, WithClock(func() time.Time { return fixed }))

	stream, err := client.Simulate(context.Background(), mercenaryStruct(t, 50))
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	progress, result, err := collect(t, stream)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	//1.- A frozen clock lets the first batch and the final batch through.
	if len(progress) != 2 || progress[0].Completed != 10 || progress[1].Completed != 50 {
		t.Fatalf("unexpected throttled progress %+v", progress)
	}
	if result == nil {
		t.Fatal("expected a result frame")
	}
}

func TestSimulateMapsConfigErrors(t *testing.T) {
	client := startSimulator(t)
	cases := map[string]map[string]any{
		"no weapons":    {"bot": "G-34 Mercenary", "weapons": []any{}},
		"unknown field": {"bot": "G-34 Mercenary", "wepons": []any{}},
		"unknown bot":   {"bot": "Nobody", "weapons": []any{map[string]any{"name": "Assault Rifle"}}},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			req, err := structpb.NewStruct(fields)
			if err != nil {
				t.Fatalf("build request: %v", err)
			}
			stream, err := client.Simulate(context.Background(), req)
			if err != nil {
				t.Fatalf("open stream: %v", err)
			}
			_, _, err = collect(t, stream)
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
		})
	}
}

func TestSimulateWithMessageCompression(t *testing.T) {
	client := startSimulator(t)
	for _, name := range []string{ZstdCompressor, SnappyCompressor} {
		t.Run(name, func(t *testing.T) {
			stream, err := client.Simulate(context.Background(), mercenaryStruct(t, 20), grpc.UseCompressor(name))
			if err != nil {
				t.Fatalf("open stream: %v", err)
			}
			_, result, err := collect(t, stream)
			if err != nil {
				t.Fatalf("stream: %v", err)
			}
			if result == nil || result.TrialsCompleted != 20 {
				t.Fatalf("unexpected result %+v", result)
			}
		})
	}
}

func TestToStatusHidesUnexpectedCauses(t *testing.T) {
	err := toStatus(errors.Join(simulation.ErrUnexpected, errors.New("secret detail")))
	if status.Code(err) != codes.Internal || status.Convert(err).Message() != simulation.ErrUnexpected.Error() {
		t.Fatalf("unexpected status %v", err)
	}
}

func TestEncodeFrameRoundTrip(t *testing.T) {
	frame, err := EncodeFrame(FrameProgress, simulation.Progress{RunID: "run-1", Completed: 3, Requested: 9})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded simulation.Progress
	frameType, err := DecodeFrame(frame, &decoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frameType != FrameProgress || decoded.RunID != "run-1" || decoded.Completed != 3 || decoded.Requested != 9 {
		t.Fatalf("unexpected frame %s %+v", frameType, decoded)
	}
}
