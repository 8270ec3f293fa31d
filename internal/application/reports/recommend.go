package reports

import (
	"github.com/google/cel-go/cel"
	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/domain/errs"
)

// DefaultRule is the recommendation used when config leaves report.recommendation empty.
const DefaultRule = `evaluated == 0 ? "INSUFFICIENT_DATA" :
	(score >= 80.0 && compliance_rate >= 0.9) ? "PASS" :
	(score >= 60.0 && compliance_rate >= 0.7) ? "CONDITIONAL" : "FAIL"`

// Recommender turns report figures into a recommendation label.
type Recommender interface {
	Recommend(score, complianceRate float64, evaluated, total int) (string, error)
}

// CELRecommender evaluates a CEL expression over score, compliance_rate, evaluated and total.
type CELRecommender struct {
	prg cel.Program
}

// NewCELRecommender compiles expr; an empty expr uses DefaultRule.
func NewCELRecommender(expr string) (*CELRecommender, error) {
	if expr == "" {
		expr = DefaultRule
	}
	env, err := cel.NewEnv(
		cel.Variable("score", cel.DoubleType),
		cel.Variable("compliance_rate", cel.DoubleType),
		cel.Variable("evaluated", cel.IntType),
		cel.Variable("total", cel.IntType),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create CEL env")
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "failed to compile recommendation rule",
			goerr.V("expr", expr), goerr.V("issues", iss.String()))
	}
	if !ast.OutputType().IsExactType(cel.StringType) {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "recommendation rule must return a string",
			goerr.V("expr", expr))
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build CEL program")
	}
	return &CELRecommender{prg: prg}, nil
}

func (r *CELRecommender) Recommend(score, complianceRate float64, evaluated, total int) (string, error) {
	out, _, err := r.prg.Eval(map[string]any{
		"score":           score,
		"compliance_rate": complianceRate,
		"evaluated":       int64(evaluated),
		"total":           int64(total),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to evaluate recommendation rule")
	}
	s, ok := out.Value().(string)
	if !ok {
		return "", goerr.New("recommendation rule returned a non-string", goerr.V("value", out.Value()))
	}
	return s, nil
}
