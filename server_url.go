package main

import (
	"fmt"
	"net"
	"strings"
)

// listenerURL returns a human-friendly URL for a listener address under the given scheme.
// 1.- Normalise the configured address so the message always shows a reachable host:port pair.
// 2.- gRPC targets are printed without a scheme since clients dial host:port directly.
func listenerURL(address, scheme string) string {
	hostPort := normaliseHostPort(address)
	if scheme == "" || scheme == "grpc" {
		return hostPort
	}
	return fmt.Sprintf("%s://%s", scheme, hostPort)
}

func normaliseHostPort(address string) string {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return "localhost"
	}
	host, port, err := net.SplitHostPort(trimmed)
	if err != nil {
		if strings.HasPrefix(trimmed, ":") {
			return "localhost" + trimmed
		}
		return trimmed
	}
	switch strings.TrimSpace(host) {
	case "", "0.0.0.0", "::", "[::]":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
