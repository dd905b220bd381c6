package connectivity

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/loansync/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthProber asks a gRPC health endpoint whether the backend is serving.
type HealthProber struct {
	conn    *grpc.ClientConn
	client  healthpb.HealthClient
	service string
}

// NewHealthProber creates a lazily connected prober for endpoint. Extra
// dial options are appended after insecure transport credentials.
func NewHealthProber(endpoint, service string, opts ...grpc.DialOption) (*HealthProber, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create health client: %w", err)
	}
	return &HealthProber{conn: conn, client: healthpb.NewHealthClient(conn), service: service}, nil
}

func (p *HealthProber) Ping(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: health status %s", common.ErrUnavailable, resp.GetStatus())
	}
	return nil
}

func (p *HealthProber) Close() error {
	return p.conn.Close()
}

// AllOf reports reachable only when every prober succeeds.
func AllOf(probers ...Prober) Prober {
	return ProberFunc(func(ctx context.Context) error {
		for _, p := range probers {
			if err := p.Ping(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
