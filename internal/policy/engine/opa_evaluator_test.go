package engine

import (
	"context"
	"testing"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	e, err := NewOPAEvaluator(context.Background(), "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_AllowAdmin_DefaultPolicy(t *testing.T) {
	e, err := NewOPAEvaluator(context.Background(), "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	tests := []struct {
		name string
		in   AdminInput
		want bool
	}{
		{"active admin", AdminInput{UserID: "u1", Active: true, Admin: true}, true},
		{"inactive admin", AdminInput{UserID: "u1", Active: false, Admin: true}, false},
		{"active member", AdminInput{UserID: "u1", Active: true, Admin: false}, false},
		{"zero input", AdminInput{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.AllowAdmin(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("AllowAdmin: %v", err)
			}
			if got != tt.want {
				t.Errorf("AllowAdmin = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOPAEvaluator_CustomPolicy(t *testing.T) {
	// Undefined allow (no default) denies instead of failing.
	policy := `package authsvc.admin

allow if {
	input.account.id == "root"
}
`
	e, err := NewOPAEvaluator(context.Background(), policy)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if ok, err := e.AllowAdmin(context.Background(), AdminInput{UserID: "root"}); err != nil || !ok {
		t.Errorf("AllowAdmin(root) = %v, %v; want true, nil", ok, err)
	}
	if ok, err := e.AllowAdmin(context.Background(), AdminInput{UserID: "someone", Admin: true, Active: true}); err != nil || ok {
		t.Errorf("AllowAdmin(someone) = %v, %v; want false, nil", ok, err)
	}
}

func TestNewOPAEvaluator_InvalidPolicy(t *testing.T) {
	if _, err := NewOPAEvaluator(context.Background(), "package authsvc.admin\n\nallow if {"); err == nil {
		t.Fatal("expected compile error")
	}
}
