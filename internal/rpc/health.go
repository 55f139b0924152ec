package rpc

import (
	"context"
	"log"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// UpdateHealth publishes the result of ready for the whole server and for the
// quiz engine service.
func UpdateHealth(hs *health.Server, ready func() error) {
	servingStatus := healthpb.HealthCheckResponse_SERVING
	if ready != nil {
		if err := ready(); err != nil {
			log.Printf("Health check failed: %v", err)
			servingStatus = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	hs.SetServingStatus("", servingStatus)
	hs.SetServingStatus(ServiceName, servingStatus)
}

// WatchReadiness refreshes the health status every interval until ctx is
// done, then marks everything as not serving.
func WatchReadiness(ctx context.Context, hs *health.Server, ready func() error, interval time.Duration) {
	UpdateHealth(hs, ready)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			UpdateHealth(hs, ready)
		}
	}
}
