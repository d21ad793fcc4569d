package infra

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServer exposes the standard gRPC health service so orchestrators can
// probe the process the same way as the other backend services.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	lis    net.Listener
}

func NewHealthServer(addr string) (*HealthServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthServer{server: srv, health: hs, lis: lis}, nil
}

func (h *HealthServer) Addr() string { return h.lis.Addr().String() }

func (h *HealthServer) Serve() error {
	return h.server.Serve(h.lis)
}

// SetServing flips the overall status reported to health checks.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
}

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
