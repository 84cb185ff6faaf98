package grpchealth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultInterval = 15 * time.Second

// Service exposes grpc.health.v1 with one status per dependency plus the
// overall status under the empty service name.
type Service struct {
	server   *health.Server
	checks   map[string]apt.HealthCheck
	interval time.Duration
	timeout  time.Duration
	logger   apt.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(interval time.Duration, logger apt.Logger) *Service {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	s := &Service{
		server:   health.NewServer(),
		checks:   make(map[string]apt.HealthCheck),
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
	}
	s.server.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// AddCheck registers a dependency probe. It must be called before Start.
func (s *Service) AddCheck(name string, check apt.HealthCheck) {
	s.checks[name] = check
	s.server.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
}

func (s *Service) RegisterGRPCService(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, s.server)
}

func (s *Service) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.refresh(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.refresh(ctx)
			}
		}
	}()
	return nil
}

func (s *Service) Stop(_ context.Context) error {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}
	s.server.Shutdown()
	return nil
}

func (s *Service) refresh(ctx context.Context) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name](checkCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Info("dependency unhealthy", "dependency", name, "error", err)
		}
		s.server.SetServingStatus(name, status)
	}
	s.server.SetServingStatus("", overall)
}
