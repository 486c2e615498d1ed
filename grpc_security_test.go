package main

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	configpkg "combatsim/broker/internal/config"
	"combatsim/broker/internal/logging"
)

type stubServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *stubServerStream) Context() context.Context {
	return s.ctx
}

// generateSelfSignedCert writes a throwaway certificate and key to the test directory.
func generateSelfSignedCert(t *testing.T) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "combatsim-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	dir := t.TempDir()
	certFile := filepath.Join(dir, "server.pem")
	keyFile := filepath.Join(dir, "server.key")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return certFile, keyFile
}

func newTestAuth(t *testing.T) *sharedSecretAuth {
	t.Helper()
	auth, err := newSharedSecretAuth(" hunter2 ")
	if err != nil {
		t.Fatalf("newSharedSecretAuth: %v", err)
	}
	return auth
}

func TestSharedSecretAuthAcceptsValidSecret(t *testing.T) {
	auth := newTestAuth(t)
	md := metadata.New(map[string]string{sharedSecretMetadataKey: "hunter2"})
	stream := &stubServerStream{ctx: metadata.NewIncomingContext(context.Background(), md)}
	called := false
	handler := func(any, grpc.ServerStream) error {
		called = true
		return nil
	}
	if err := auth.intercept(nil, stream, &grpc.StreamServerInfo{}, handler); err != nil {
		t.Fatalf("interceptor returned error: %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked for valid secret")
	}
}

func TestSharedSecretAuthAcceptsBearerToken(t *testing.T) {
	auth := newTestAuth(t)
	for _, header := range []string{"Bearer hunter2", "bearer  hunter2 "} {
		md := metadata.New(map[string]string{"authorization": header})
		stream := &stubServerStream{ctx: metadata.NewIncomingContext(context.Background(), md)}
		if err := auth.intercept(nil, stream, &grpc.StreamServerInfo{}, func(any, grpc.ServerStream) error { return nil }); err != nil {
			t.Fatalf("expected %q to be accepted, got %v", header, err)
		}
	}
}

func TestSharedSecretAuthRejectsAndLogsWithTrace(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWriterLogger(&buf, "debug")
	if err != nil {
		t.Fatalf("NewWriterLogger: %v", err)
	}
	auth := newTestAuth(t)
	handler := func(any, grpc.ServerStream) error {
		t.Fatal("handler must not run for rejected streams")
		return nil
	}

	cases := []struct {
		name   string
		md     metadata.MD
		reason string
	}{
		{name: "no metadata", md: nil, reason: "missing shared secret"},
		{name: "empty bearer", md: metadata.New(map[string]string{"authorization": "Bearer "}), reason: "missing shared secret"},
		{name: "wrong secret", md: metadata.New(map[string]string{sharedSecretMetadataKey: "letmein"}), reason: "invalid shared secret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			//1.- The trace interceptor runs first, as it does on the server.
			ctx, _, _ := logging.WithTrace(context.Background(), logger, "trace-"+strings.ReplaceAll(tc.name, " ", "-"))
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}
			err := auth.intercept(nil, &stubServerStream{ctx: ctx}, &grpc.StreamServerInfo{FullMethod: "/combatsim.v1.Simulator/Simulate"}, handler)
			if status.Code(err) != codes.Unauthenticated || !strings.Contains(err.Error(), tc.reason) {
				t.Fatalf("expected unauthenticated %q, got %v", tc.reason, err)
			}
			out := buf.String()
			for _, want := range []string{"simulator stream rejected", tc.reason, "trace-"} {
				if !strings.Contains(out, want) {
					t.Fatalf("log missing %q: %s", want, out)
				}
			}
		})
	}
}

func TestNewSharedSecretAuthRejectsEmptySecret(t *testing.T) {
	if _, err := newSharedSecretAuth("   "); err == nil {
		t.Fatal("expected a blank secret to be rejected")
	}
}

func TestTraceInterceptorPropagatesIncomingTraceID(t *testing.T) {
	interceptor := newTraceStreamInterceptor(logging.NewTestLogger())
	md := metadata.New(map[string]string{traceMetadataKey: "trace-abc"})
	stream := &stubServerStream{ctx: metadata.NewIncomingContext(context.Background(), md)}
	var seen string
	handler := func(_ any, ss grpc.ServerStream) error {
		seen = logging.TraceIDFromContext(ss.Context())
		return nil
	}
	if err := interceptor(nil, stream, &grpc.StreamServerInfo{FullMethod: "/combatsim.v1.Simulator/Simulate"}, handler); err != nil {
		t.Fatalf("interceptor returned error: %v", err)
	}
	if seen != "trace-abc" {
		t.Fatalf("expected the incoming trace id, got %q", seen)
	}
}

func TestTraceInterceptorLogsHeaderFailure(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWriterLogger(&buf, "info")
	if err != nil {
		t.Fatalf("NewWriterLogger: %v", err)
	}
	//1.- A bare context has no server transport, so the header cannot be attached.
	stream := &stubServerStream{ctx: context.Background()}
	interceptor := newTraceStreamInterceptor(logger)
	if err := interceptor(nil, stream, &grpc.StreamServerInfo{FullMethod: "/combatsim.v1.Simulator/Simulate"}, func(any, grpc.ServerStream) error { return nil }); err != nil {
		t.Fatalf("interceptor returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "trace header not sent") || !strings.Contains(out, "/combatsim.v1.Simulator/Simulate") {
		t.Fatalf("expected the header failure to be logged, got %s", out)
	}
}

func TestLoadMTLSCredentialsFailsWithBadPaths(t *testing.T) {
	if _, err := loadMTLSCredentials("missing-cert", "missing-key", "missing-ca"); err == nil {
		t.Fatal("expected error for missing files")
	}
}

func TestConfigureGRPCSecurityMTLS(t *testing.T) {
	certFile, keyFile := generateSelfSignedCert(t)
	caFile := certFile

	cfg := &configpkg.Config{GRPCAuthMode: configpkg.GRPCAuthModeMTLS, GRPCServerCertPath: certFile, GRPCServerKeyPath: keyFile, GRPCClientCAPath: caFile}
	opts, err := configureGRPCSecurity(cfg, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("configureGRPCSecurity: %v", err)
	}
	if len(opts) < 2 {
		t.Fatal("expected grpc options for mtls configuration")
	}
}

func TestConfigureGRPCSecuritySharedSecret(t *testing.T) {
	cfg := &configpkg.Config{GRPCAuthMode: configpkg.GRPCAuthModeSharedSecret, GRPCSharedSecret: "hunter2"}
	opts, err := configureGRPCSecurity(cfg, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("configureGRPCSecurity: %v", err)
	}
	if len(opts) < 2 {
		t.Fatal("expected grpc options for shared secret configuration")
	}
}

func TestConfigureGRPCSecurityNone(t *testing.T) {
	cfg := &configpkg.Config{GRPCAuthMode: configpkg.GRPCAuthModeNone}
	opts, err := configureGRPCSecurity(cfg, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("configureGRPCSecurity: %v", err)
	}
	if len(opts) != 1 {
		t.Fatalf("expected only the trace interceptor, got %d options", len(opts))
	}
	if _, err := configureGRPCSecurity(&configpkg.Config{GRPCAuthMode: "kerberos"}, nil); err == nil {
		t.Fatal("expected an unsupported mode to fail")
	}
}
