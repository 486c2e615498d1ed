package main

import (
	"context"
	"crypto/subtle"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	configpkg "combatsim/broker/internal/config"
	"combatsim/broker/internal/logging"
)

const (
	sharedSecretMetadataKey = "x-combatsim-shared-secret"
	traceMetadataKey        = "x-trace-id"
	bearerPrefix            = "bearer "
)

var errMissingSecret = errors.New("missing shared secret")

// configureGRPCSecurity returns the server options for the simulator listener. Every
// stream is traced first so authentication failures carry the caller's trace id.
func configureGRPCSecurity(cfg *configpkg.Config, logger *logging.Logger) ([]grpc.ServerOption, error) {
	if cfg == nil {
		return nil, errors.New("grpc config required")
	}
	if logger == nil {
		logger = logging.L()
	}
	opts := []grpc.ServerOption{grpc.ChainStreamInterceptor(newTraceStreamInterceptor(logger))}
	mode := logging.String("auth_mode", string(cfg.GRPCAuthMode))

	switch cfg.GRPCAuthMode {
	case configpkg.GRPCAuthModeNone, "":
		logger.Warn("gRPC simulator accepts unauthenticated streams", mode)
		return opts, nil
	case configpkg.GRPCAuthModeMTLS:
		creds, err := loadMTLSCredentials(cfg.GRPCServerCertPath, cfg.GRPCServerKeyPath, cfg.GRPCClientCAPath)
		if err != nil {
			return nil, fmt.Errorf("grpc mtls: %w", err)
		}
		logger.Info("gRPC simulator requires client certificates", mode, logging.String("client_ca", cfg.GRPCClientCAPath))
		return append(opts, grpc.Creds(creds)), nil
	case configpkg.GRPCAuthModeSharedSecret:
		auth, err := newSharedSecretAuth(cfg.GRPCSharedSecret)
		if err != nil {
			return nil, fmt.Errorf("grpc shared secret: %w", err)
		}
		logger.Info("gRPC simulator requires a shared secret", mode, logging.String("metadata_key", sharedSecretMetadataKey))
		return append(opts, grpc.ChainStreamInterceptor(auth.intercept)), nil
	default:
		return nil, fmt.Errorf("unsupported grpc auth mode %q", cfg.GRPCAuthMode)
	}
}

// tracedStream overrides the stream context with one carrying the trace logger.
type tracedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *tracedStream) Context() context.Context { return s.ctx }

// newTraceStreamInterceptor mirrors the HTTP trace middleware for gRPC streams.
func newTraceStreamInterceptor(base *logging.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		incoming := ""
		if md, ok := metadata.FromIncomingContext(ss.Context()); ok {
			if values := md.Get(traceMetadataKey); len(values) > 0 {
				incoming = values[0]
			}
		}
		ctx, logger, traceID := logging.WithTrace(ss.Context(), base, incoming)
		method := logging.String("method", info.FullMethod)
		if err := grpc.SetHeader(ctx, metadata.Pairs(traceMetadataKey, traceID)); err != nil {
			logger.Warn("trace header not sent", method, logging.Error(err))
		}
		logger.Debug("simulator stream opened", method)
		return handler(srv, &tracedStream{ServerStream: ss, ctx: ctx})
	}
}

// sharedSecretAuth admits simulator streams that present the configured secret.
type sharedSecretAuth struct {
	secret []byte
}

func newSharedSecretAuth(secret string) (*sharedSecretAuth, error) {
	normalized := strings.TrimSpace(secret)
	if normalized == "" {
		return nil, errors.New("SIM_GRPC_SHARED_SECRET is empty")
	}
	return &sharedSecretAuth{secret: []byte(normalized)}, nil
}

func (a *sharedSecretAuth) intercept(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	md, _ := metadata.FromIncomingContext(ss.Context())
	candidate, err := sharedSecretFrom(md)
	if err == nil && subtle.ConstantTimeCompare([]byte(candidate), a.secret) != 1 {
		err = errors.New("invalid shared secret")
	}
	if err != nil {
		logging.LoggerFromContext(ss.Context()).Warn("simulator stream rejected",
			logging.String("method", info.FullMethod),
			logging.Error(err),
		)
		return status.Error(codes.Unauthenticated, err.Error())
	}
	return handler(srv, ss)
}

// sharedSecretFrom reads the dedicated metadata key first, then a bearer authorization.
func sharedSecretFrom(md metadata.MD) (string, error) {
	for _, value := range md.Get(sharedSecretMetadataKey) {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed, nil
		}
	}
	for _, value := range md.Get("authorization") {
		if len(value) > len(bearerPrefix) && strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
			if token := strings.TrimSpace(value[len(bearerPrefix):]); token != "" {
				return token, nil
			}
		}
	}
	return "", errMissingSecret
}

func loadMTLSCredentials(certPath, keyPath, caPath string) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load server keypair: %w", err)
	}
	caBytes, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("read client ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("client ca %s holds no PEM certificates", caPath)
	}
	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS12,
	}), nil
}
