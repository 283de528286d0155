package reminder

import (
	"context"
	"log"
	"time"
)

// Runner invokes Tick on a fixed wall-clock period until the context ends.
// Tick errors are logged and the loop keeps going; a failed tick is retried
// naturally on the next period because unrecorded keys fire again.
type Runner struct {
	Every  time.Duration
	Tick   func(ctx context.Context) (int, error)
	Logger *log.Logger
}

func (r Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// Run blocks, ticking immediately and then on every period.
func (r Runner) Run(ctx context.Context) error {
	every := r.Every
	if every <= 0 {
		every = 60 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		sent, err := r.Tick(ctx)
		if err != nil {
			r.logger().Printf("reminder tick failed: %v", err)
		} else if sent > 0 {
			r.logger().Printf("reminder tick delivered %d notification(s)", sent)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ConsoleNotifier prints reminders to the log; used when no webhook is
// configured.
type ConsoleNotifier struct {
	Logger *log.Logger
}

func (n ConsoleNotifier) Send(_ context.Context, r Reminder) error {
	logger := n.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("reminder: %s", Format(r))
	return nil
}
