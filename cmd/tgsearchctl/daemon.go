package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/tgsearch/internal/rpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// probeDaemon reports whether a daemon answers health checks on socketPath.
// A daemon still connecting counts as running.
func probeDaemon(socketPath string) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}
	c, err := rpc.Dial(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := c.Check(ctx)
	return err == nil && st != healthpb.HealthCheckResponse_UNKNOWN
}

func startDaemon(name string) error {
	daemon := "tgsearchd"
	if executable, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(executable), "tgsearchd")
		if _, err := os.Stat(sibling); err == nil {
			daemon = sibling
		}
	}

	cmd := exec.Command(daemon, "--instance", name)
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// waitForDaemon polls the health endpoint until it answers or timeout.
func waitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
