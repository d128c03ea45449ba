package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/socialbridge/internal/resiliency"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

// CheckResult is one answered health check.
type CheckResult struct {
	Service string
	Status  healthpb.HealthCheckResponse_ServingStatus
	// Raw is the response rendered as protojson.
	Raw string
}

// Serving reports whether the service answered SERVING.
func (r CheckResult) Serving() bool {
	return r.Status == healthpb.HealthCheckResponse_SERVING
}

// Check dials ep and queries service, retrying until ctx ends.
func Check(ctx context.Context, ep Endpoint, service string) (CheckResult, error) {
	conn, err := grpc.NewClient(ep.Target(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return CheckResult{}, fmt.Errorf("dial health %q: %w", ep.Target(), err)
	}
	defer conn.Close()

	conn.Connect()
	if err := waitForReady(ctx, conn); err != nil {
		return CheckResult{}, fmt.Errorf("wait for health endpoint: %w", err)
	}

	client := healthpb.NewHealthClient(conn)
	resp, err := resiliency.RetryGet(ctx, resiliency.ProbeBackOff(), func() (*healthpb.HealthCheckResponse, error) {
		return client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	})
	if err != nil {
		return CheckResult{}, fmt.Errorf("health check %q: %w", service, err)
	}

	return CheckResult{
		Service: service,
		Status:  resp.GetStatus(),
		Raw:     protojson.Format(resp),
	}, nil
}

// waitForReady blocks until conn is Ready or ctx ends.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}
