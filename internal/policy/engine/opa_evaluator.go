package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/rs/zerolog"
)

const allowAdminQuery = "data.authsvc.admin.allow"

// DefaultAdminPolicy allows administration to active admin accounts only.
const DefaultAdminPolicy = `package authsvc.admin

default allow := false

allow if {
	input.account.active
	input.account.admin
}
`

// OPAEvaluator evaluates the admin policy with an in-process OPA Rego engine.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy (DefaultAdminPolicy when empty) and prepares the allow query.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultAdminPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"admin.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile admin policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(allowAdminQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare admin policy: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// AllowAdmin evaluates the policy for in. An undefined result denies.
func (e *OPAEvaluator) AllowAdmin(ctx context.Context, in AdminInput) (bool, error) {
	input := map[string]interface{}{
		"account": map[string]interface{}{
			"id":     in.UserID,
			"active": in.Active,
			"admin":  in.Admin,
		},
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval admin policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		zerolog.Ctx(ctx).Debug().Str("account_id", in.UserID).Msg("admin policy undefined, denying")
		return false, nil
	}
	allow, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("admin policy returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return allow, nil
}

// HealthCheck verifies the prepared policy evaluates. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.AllowAdmin(ctx, AdminInput{})
	return err
}
