package builder

import (
	"context"

	"planforge/internal/shell"
	"planforge/internal/stack"
)

// genericStrategy has no install or build step; it only runs the plan's
// post_install commands directly in the project directory.
type genericStrategy struct {
	runner *shell.Runner
}

func (s *genericStrategy) Tag() stack.Tag { return stack.Generic }

func (s *genericStrategy) Build(ctx context.Context, req Request) Outcome {
	var out Outcome
	runPostInstall(ctx, s.runner, req, &out, nil)
	return out
}
