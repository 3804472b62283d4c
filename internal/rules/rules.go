package rules

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"linksum/internal/logger"
	"linksum/internal/slack"
)

// IgnoreRules is a compiled set of CEL expressions over inbound events.
// An event matching any rule is skipped by the pipeline; operators use
// this to mute noisy channels or event shapes without a redeploy.
type IgnoreRules struct {
	programs []cel.Program
	exprs    []string
	logger   logger.Logger
}

func Compile(exprs []string, log logger.Logger) (*IgnoreRules, error) {
	r := &IgnoreRules{logger: log}
	if len(exprs) == 0 {
		return r, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("type", cel.StringType),
		cel.Variable("channel", cel.StringType),
		cel.Variable("user", cel.StringType),
		cel.Variable("text", cel.StringType),
		cel.Variable("bot_id", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	for _, expr := range exprs {
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("invalid ignore rule %q: %w", expr, issues.Err())
		}

		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("ignore rule %q must return bool, got %v", expr, ast.OutputType())
		}

		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to build program for rule %q: %w", expr, err)
		}

		r.programs = append(r.programs, program)
		r.exprs = append(r.exprs, expr)
	}

	return r, nil
}

func (r *IgnoreRules) Len() int {
	return len(r.programs)
}

// Matches reports whether any rule matches the event. Evaluation errors
// never block an event; the rule is logged and treated as non-matching.
func (r *IgnoreRules) Matches(ctx context.Context, event *slack.MessageEvent) bool {
	if len(r.programs) == 0 {
		return false
	}

	vars := map[string]interface{}{
		"type":    event.Type,
		"channel": event.Channel,
		"user":    event.User,
		"text":    event.Text,
		"bot_id":  event.BotID,
	}

	for i, program := range r.programs {
		out, _, err := program.ContextEval(ctx, vars)
		if err != nil {
			r.logger.WarnwCtx(ctx, "Ignore rule evaluation failed",
				"rule", r.exprs[i],
				"error", err,
			)
			continue
		}

		if matched, ok := out.Value().(bool); ok && matched {
			return true
		}
	}

	return false
}
