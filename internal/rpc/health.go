package rpc

import (
	"context"

	"github.com/matheus3301/tgsearch/internal/bus"
	"github.com/matheus3301/tgsearch/internal/status"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthReporter mirrors the state machine into the standard gRPC health
// service: SERVING while Ready, NOT_SERVING otherwise.
type HealthReporter struct {
	server  *health.Server
	machine *status.Machine
	bus     *bus.Bus
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewHealthReporter creates a reporter seeded with the current state.
func NewHealthReporter(machine *status.Machine, b *bus.Bus) *HealthReporter {
	h := &HealthReporter{server: health.NewServer(), machine: machine, bus: b}
	h.set(machine.Current())
	return h
}

// Server returns the health service implementation.
func (h *HealthReporter) Server() *health.Server {
	return h.server
}

// Start follows state changes published on the bus.
func (h *HealthReporter) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	ch, unsub := h.bus.Subscribe(bus.KindStatusChanged, 16)
	// A change between seeding and subscribing would otherwise be missed.
	h.set(h.machine.Current())

	go func() {
		defer close(h.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				if change, ok := evt.Payload.(status.StatusChange); ok {
					h.set(change.To)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops following state changes and marks every service NOT_SERVING.
func (h *HealthReporter) Stop() {
	if h.cancel != nil {
		h.cancel()
		<-h.done
	}
	h.server.Shutdown()
}

func (h *HealthReporter) set(s status.State) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s == status.Ready {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus("", st)
	h.server.SetServingStatus(ServiceName, st)
}
