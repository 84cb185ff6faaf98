package grpchealth

import (
	"context"
	"errors"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func statusOf(t *testing.T, s *Service, name string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.server.Check(context.Background(), &healthpb.HealthCheckRequest{Service: name})
	if err != nil {
		t.Fatalf("Check(%q) error = %v", name, err)
	}
	return resp.Status
}

func TestServiceRefresh(t *testing.T) {
	tests := []struct {
		name        string
		storeErr    error
		wantStore   healthpb.HealthCheckResponse_ServingStatus
		wantOverall healthpb.HealthCheckResponse_ServingStatus
	}{
		{
			name:        "allHealthy",
			wantStore:   healthpb.HealthCheckResponse_SERVING,
			wantOverall: healthpb.HealthCheckResponse_SERVING,
		},
		{
			name:        "storeDown",
			storeErr:    errors.New("connection refused"),
			wantStore:   healthpb.HealthCheckResponse_NOT_SERVING,
			wantOverall: healthpb.HealthCheckResponse_NOT_SERVING,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(0, nil)
			s.AddCheck("store", func(context.Context) error { return tt.storeErr })
			s.AddCheck("events", func(context.Context) error { return nil })

			if got := statusOf(t, s, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
				t.Errorf("status before refresh = %v, want NOT_SERVING", got)
			}

			s.refresh(context.Background())

			if got := statusOf(t, s, "store"); got != tt.wantStore {
				t.Errorf("store = %v, want %v", got, tt.wantStore)
			}
			if got := statusOf(t, s, "events"); got != healthpb.HealthCheckResponse_SERVING {
				t.Errorf("events = %v, want SERVING", got)
			}
			if got := statusOf(t, s, ""); got != tt.wantOverall {
				t.Errorf("overall = %v, want %v", got, tt.wantOverall)
			}
		})
	}
}

func TestServiceStartStop(t *testing.T) {
	s := NewService(0, nil)
	s.AddCheck("store", func(context.Context) error { return nil })

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := statusOf(t, s, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("overall after Start = %v, want SERVING", got)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if got := statusOf(t, s, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("overall after Stop = %v, want NOT_SERVING", got)
	}
}
