package llm

import "context"

// StaticInvoker returns a canned solution. Used in dry-run mode and in
// tests where the external API must not be reached.
type StaticInvoker struct {
	Solution *Solution
	Err      error
}

var _ Invoker = (*StaticInvoker)(nil)

func (s *StaticInvoker) Solve(ctx context.Context, req Request) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Solution != nil {
		out := *s.Solution
		return &out, nil
	}
	return &Solution{
		Content:    "dry-run solution for: " + req.Title,
		Reasoning:  "generated without contacting the model",
		Confidence: 0,
		Model:      "dry-run",
	}, nil
}
