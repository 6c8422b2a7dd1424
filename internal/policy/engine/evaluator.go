package engine

import "context"

// AdminInput is the caller snapshot evaluated by the admin policy.
type AdminInput struct {
	UserID string
	Active bool
	Admin  bool
}

// Evaluator decides administrative access using OPA or other engines.
type Evaluator interface {
	// AllowAdmin reports whether the caller may perform account administration.
	AllowAdmin(ctx context.Context, in AdminInput) (bool, error)
}
