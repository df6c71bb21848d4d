package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/articulated"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(context.Background()))
	return out.String()
}

func TestRunSolveChain(t *testing.T) {
	var logs bytes.Buffer
	ctx := withLogger(context.Background(), newLogger(&logs, log.InfoLevel))

	rep, err := runSolve(ctx, articulated.DefaultConfig(), solveOptions{links: 3, branches: 1, steps: 2, gravity: 10})
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Nodes)
	assert.Equal(t, 9, rep.Rows)
	require.Len(t, rep.Steps, 2)
	for _, step := range rep.Steps {
		assert.Equal(t, articulated.ClampConverged, step.Stats.State)
		assert.InDelta(t, 10.0, step.Stats.InitialResidual, 1e-9)
	}
	assert.InDelta(t, 30.0, rep.RootForce.Y(), 1e-6)
	assert.Contains(t, logs.String(), "Solved 2 steps on 4 nodes: 2 iterations, 0 rebuilds")
}

func TestRunSolveTreeSupport(t *testing.T) {
	ctx := withLogger(context.Background(), newLogger(&bytes.Buffer{}, log.InfoLevel))
	rep, err := runSolve(ctx, articulated.DefaultConfig(), solveOptions{links: 2, branches: 4, steps: 1, gravity: 9.81})
	require.NoError(t, err)
	assert.Equal(t, 9, rep.Nodes)
	assert.InDelta(t, 8*9.81, rep.RootForce.Y(), 1e-6)
}

func TestRunSolveRejectsBadOptions(t *testing.T) {
	ctx := context.Background()
	_, err := runSolve(ctx, articulated.DefaultConfig(), solveOptions{links: 0, steps: 1})
	assert.Error(t, err)
	_, err = runSolve(ctx, articulated.DefaultConfig(), solveOptions{links: 2, steps: 0})
	assert.Error(t, err)
}

func TestSolveCommand(t *testing.T) {
	out := execute(t, "solve", "--links", "3", "--steps", "2")
	assert.Contains(t, out, "nodes")
	assert.Contains(t, out, "All 2 steps converged")
}

func TestSolveCommandReportsClamping(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "solver.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("max_iterations = 1\n"), 0o644))

	out := execute(t, "solve", "--links", "4", "--friction", "20", "--config", cfg)
	assert.Contains(t, out, "iteration-exhausted")
	assert.Contains(t, out, "hit the iteration cap")
}

func TestConfigCommand(t *testing.T) {
	out := execute(t, "config")
	assert.Contains(t, out, "max_iterations = 8")

	cfg := filepath.Join(t.TempDir(), "solver.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("tolerance = 0.5\n"), 0o644))
	out = execute(t, "config", "--config", cfg)
	assert.Contains(t, out, "tolerance = 0.5")
}

func TestLoggerFromContextDefault(t *testing.T) {
	assert.Same(t, log.Default(), loggerFromContext(context.Background()))
}
