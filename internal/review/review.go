package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/schwitzd/hooksync/internal/config"
)

// Verdict is the fixed JSON object the review subprocess must emit.
type Verdict struct {
	Score   int    `json:"score"`
	Pass    bool   `json:"pass"`
	Issues  []any  `json:"issues"`
	Summary string `json:"summary"`
}

// Decision is the gate outcome after applying the configured policy.
type Decision struct {
	Allow   bool
	Verdict *Verdict
	Reason  string
}

// Runner invokes the external review subprocess with a bounded timeout and
// truncated input, and turns its failures into a policy decision instead of
// a crash.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRunner creates a review runner
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

// Run reviews the given diff. Timeouts, crashes and malformed output never
// surface as errors: they are resolved by the fail-open/fail-closed policy.
func (r *Runner) Run(ctx context.Context, diff string) Decision {
	if r.cfg.Review.Disabled {
		return Decision{Allow: true, Reason: "review disabled"}
	}
	if strings.TrimSpace(diff) == "" {
		return Decision{Allow: true, Reason: "nothing to review"}
	}

	input, truncated := truncateLines(diff, r.cfg.Review.MaxLines)
	if truncated {
		r.logger.Debug("review input truncated", "max_lines", r.cfg.Review.MaxLines)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.ReviewTimeout())
	defer cancel()

	command := r.cfg.Review.Command
	cmd := exec.CommandContext(runCtx, command[0], command[1:]...)
	cmd.Stdin = strings.NewReader(input)

	output, err := cmd.Output()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return r.failure("review subprocess timed out")
		}
		return r.failure(fmt.Sprintf("review subprocess failed: %v", err))
	}

	var verdict Verdict
	if err := json.Unmarshal(output, &verdict); err != nil {
		return r.failure(fmt.Sprintf("malformed review output: %v", err))
	}
	if verdict.Score < 0 || verdict.Score > 100 {
		return r.failure(fmt.Sprintf("review score out of range: %d", verdict.Score))
	}

	allow := verdict.Pass && verdict.Score >= r.cfg.Review.MinScore
	reason := fmt.Sprintf("score %d (minimum %d)", verdict.Score, r.cfg.Review.MinScore)
	return Decision{Allow: allow, Verdict: &verdict, Reason: reason}
}

// failure applies the configured policy to a subprocess failure.
func (r *Runner) failure(reason string) Decision {
	if r.cfg.Review.FailPolicy == config.FailClosed {
		r.logger.Warn("review unavailable, blocking (fail-closed)", "reason", reason)
		return Decision{Allow: false, Reason: reason}
	}
	r.logger.Warn("review unavailable, allowing (fail-open)", "reason", reason)
	return Decision{Allow: true, Reason: reason}
}

// truncateLines caps s at max lines, reporting whether anything was dropped.
func truncateLines(s string, max int) (string, bool) {
	lines := strings.Split(s, "\n")
	if len(lines) <= max {
		return s, false
	}
	return strings.Join(lines[:max], "\n"), true
}
