package app

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// reviewPromptTimeout bounds how long one candidate holds the console before
// it is pushed back behind newer arrivals.
const reviewPromptTimeout = 30 * time.Second

// reviewLoop drives the interactive approval prompt. Each pending candidate
// is offered on stdin; an unanswered or deferred prompt requeues the
// candidate after the timeout. The HTTP approval endpoints work on the same
// registry, so either surface can settle a candidate.
func (a *App) reviewLoop(ctx context.Context, deps *Dependencies) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-deps.State.Reviews():
			if deps.Registry.IsApproved(c) {
				continue
			}
			fmt.Printf("\nMatch candidate (score %d):\n  feed:   %s\n  market: %s [%s]\nApprove? [y/n/defer]: ",
				c.Score, c.SourceTitle, c.TargetTitle, c.TargetID)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case line := <-lines:
				switch strings.ToLower(line) {
				case "y", "yes":
					if err := deps.Registry.Approve(c); err != nil {
						a.logger.Error("approve failed", slog.String("error", err.Error()))
					}
				case "n", "no":
					deps.Registry.Reject(c)
				default:
					deps.State.RequeueReviewAfter(c, reviewPromptTimeout, ctx.Done())
				}
			case <-time.After(reviewPromptTimeout):
				fmt.Println("\n(no answer, deferring)")
				deps.State.RequeueReviewAfter(c, reviewPromptTimeout, ctx.Done())
			}
		}
	}
}
