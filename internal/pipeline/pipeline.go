// Package pipeline runs claim checking as a fixed sequence of stages over a shared State.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
)

// ErrIncompleteReport is returned when a run ends without a final report
var ErrIncompleteReport = errors.New("pipeline: incomplete report")

// Node is one stage. Run reads earlier fields of s and returns a partial
// update; it must not modify s. Per-item failures are absorbed by the stage,
// so an error from Run means the run itself cannot continue.
type Node interface {
	Name() string
	Writes() Field
	Run(ctx context.Context, s *State) (Update, error)
}

// Graph executes its nodes strictly in order, merging each update before the next node runs
type Graph struct {
	nodes   []Node
	metrics *metrics.Metrics
}

// GraphOption configures a Graph
type GraphOption func(*Graph)

// WithMetrics records stage timings and run outcomes
func WithMetrics(m *metrics.Metrics) GraphOption {
	return func(g *Graph) { g.metrics = m }
}

// NewGraph creates a graph over nodes in execution order
func NewGraph(nodes []Node, opts ...GraphOption) *Graph {
	g := &Graph{nodes: nodes}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Nodes returns the stage names in execution order
func (g *Graph) Nodes() []string {
	names := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		names[i] = n.Name()
	}
	return names
}

// Run executes every node over raw and returns the terminal state.
// Empty intermediate results do not stop the run; only cancellation or a
// node error does, in which case the partial state is returned with the error.
func (g *Graph) Run(ctx context.Context, raw string) (*State, error) {
	state := NewState(raw)
	log := zap.L().With(zap.String("run_id", state.RunID))
	log.Info("pipeline: run started", zap.Int("input_chars", len(raw)))

	runStart := time.Now()
	for _, node := range g.nodes {
		if err := ctx.Err(); err != nil {
			return state, eris.Wrapf(err, "pipeline: cancelled before %s", node.Name())
		}

		start := time.Now()
		update, err := node.Run(ctx, state)
		elapsed := time.Since(start)
		g.metrics.ObserveStage(node.Name(), elapsed)

		if err != nil {
			log.Error("pipeline: stage failed", zap.String("stage", node.Name()), zap.Error(err))
			return state, eris.Wrapf(err, "pipeline: %s", node.Name())
		}
		if err := state.merge(node.Name(), node.Writes(), update); err != nil {
			return state, err
		}

		log.Debug("pipeline: stage complete",
			zap.String("stage", node.Name()),
			zap.Stringer("writes", update.Writes()),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		)
	}

	log.Info("pipeline: run finished",
		zap.Stringer("written", state.Written()),
		zap.Int64("duration_ms", time.Since(runStart).Milliseconds()),
	)
	return state, nil
}

// Check runs the graph and returns its final report.
// Any run that does not produce a report yields an error matching ErrIncompleteReport.
func (g *Graph) Check(ctx context.Context, raw string) (*model.FinalReport, error) {
	state, err := g.Run(ctx, raw)
	if err != nil {
		g.metrics.Run("error")
		return nil, errors.Join(ErrIncompleteReport, err)
	}

	report := state.Report()
	if report == nil {
		g.metrics.Run("incomplete")
		zap.L().Warn("pipeline: run produced no report", zap.String("run_id", state.RunID))
		return nil, eris.Wrapf(ErrIncompleteReport, "run %s", state.RunID)
	}

	g.metrics.Run("complete")
	g.metrics.Verdicts(report.VerifiedClaims)
	return report, nil
}
