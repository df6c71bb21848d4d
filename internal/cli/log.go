package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gekko3d/articulated"
)

// newLogger creates a timestamped logger writing to w at the given level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stepTimer accumulates clamp-loop work across solver steps and logs one
// summary line when the run ends.
type stepTimer struct {
	logger     *log.Logger
	start      time.Time
	steps      int
	iterations int
	rebuilds   int
}

func newStepTimer(l *log.Logger) *stepTimer {
	return &stepTimer{logger: l, start: time.Now()}
}

func (t *stepTimer) record(stats articulated.SolveStats) {
	t.steps++
	t.iterations += stats.Iterations
	t.rebuilds += stats.Rebuilds
}

func (t *stepTimer) done(nodes int) {
	elapsed := time.Since(t.start)
	perStep := elapsed
	if t.steps > 0 {
		perStep = elapsed / time.Duration(t.steps)
	}
	t.logger.Infof("Solved %d steps on %d nodes: %d iterations, %d rebuilds (%s, %s/step)",
		t.steps, nodes, t.iterations, t.rebuilds,
		elapsed.Round(time.Microsecond), perStep.Round(time.Microsecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached to ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
