package handler

import (
	"context"
	"errors"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) Ping(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func check(t *testing.T, srv *Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealth_NotServingBeforeUpdate(t *testing.T) {
	srv := NewServer(nil, nil, "auth.v1.AuthService")
	if got := check(t, srv, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}
}

func TestHealth_Update(t *testing.T) {
	tests := []struct {
		name   string
		pinger Pinger
		policy PolicyChecker
		want   healthpb.HealthCheckResponse_ServingStatus
	}{
		{"no checkers", nil, nil, healthpb.HealthCheckResponse_SERVING},
		{"pinger success", &mockPinger{}, nil, healthpb.HealthCheckResponse_SERVING},
		{"pinger failure", &mockPinger{pingErr: errors.New("connection refused")}, nil, healthpb.HealthCheckResponse_NOT_SERVING},
		{"policy success", nil, &mockPolicyChecker{}, healthpb.HealthCheckResponse_SERVING},
		{"policy failure", nil, &mockPolicyChecker{healthErr: errors.New("rego compile failed")}, healthpb.HealthCheckResponse_NOT_SERVING},
		{"both, policy fails", &mockPinger{}, &mockPolicyChecker{healthErr: errors.New("policy error")}, healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(tt.pinger, tt.policy, "auth.v1.AuthService")
			if got := srv.Update(context.Background()); got != tt.want {
				t.Errorf("Update = %v, want %v", got, tt.want)
			}
			if got := check(t, srv, ""); got != tt.want {
				t.Errorf("overall status = %v, want %v", got, tt.want)
			}
			if got := check(t, srv, "auth.v1.AuthService"); got != tt.want {
				t.Errorf("service status = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealth_Recovers(t *testing.T) {
	p := &mockPinger{pingErr: errors.New("down")}
	srv := NewServer(p, nil)
	srv.Update(context.Background())
	p.pingErr = nil
	if got := srv.Update(context.Background()); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status after recovery = %v, want SERVING", got)
	}
}
