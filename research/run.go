package research

import (
	"context"
	"fmt"

	coreerrors "github.com/ggozad/haikurag-core/errors"
	"github.com/ggozad/haikurag-core/graph"
)

// nodePlanNext, nodeSearchOne, nodeSynthesize name the three graph
// states of spec.md §4.8.
const (
	nodeStart      = "start"
	nodePlanNext   = "plan_next"
	nodeSearchOne  = "search_one"
	nodeSynthesize = "synthesize"
)

// RunConfig bundles the three collaborators a Run drives through the
// graph, plus which Synthesizer mode the run produces.
type RunConfig struct {
	Planner     *Planner
	Searcher    *Searcher
	Synthesizer *Synthesizer
	// Mode selects the synthesizer's output shape. The spec names two
	// modes (Report, ConversationalAnswer) without prescribing a
	// selector; this implementation leaves the choice to the caller —
	// a standalone research request sets OutputReport, a chat-session
	// ask sets OutputConversational (see DESIGN.md).
	Mode OutputKind
	// EventBuffer sizes the emitted event channel (default 64).
	EventBuffer int
}

// Run drives rctx through PlanNext → SearchOne → PlanNext ... →
// Synthesize per spec.md §4.8, wired onto the kept graph/graph.go
// engine: PlanNext is a condition node whose branch decides Search vs
// Synthesize, SearchOne loops back to PlanNext unconditionally, and
// Synthesize is the graph's end node.
//
// The returned channel carries the run's totally-ordered event stream
// and is always closed exactly once, by a RunFinished or RunError event;
// a caller that never reads from it does not block the run (events are
// dropped, not buffered without bound, once the channel fills).
func Run(ctx context.Context, cfg RunConfig, rctx *Context) <-chan Event {
	em := newEmitter(cfg.EventBuffer)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				em.runError("error", fmt.Errorf("research run panicked: %v", r))
			}
		}()

		em.runStarted(rctx.OriginalQuestion)

		g := buildGraph(cfg, em, rctx.MaxIterations)
		state := graph.State{"rctx": rctx}

		final, err := g.Execute(ctx, state)
		if err != nil {
			if ctx.Err() != nil {
				em.runError("cancelled", coreerrors.Cancelled("research run cancelled"))
				return
			}
			em.runError("error", err)
			return
		}

		output, _ := final["output"].(Output)
		em.runFinished(output)
	}()

	return em.ch
}

// Collect drains events to completion and returns the run's final
// result, for callers that don't need to observe intermediate events.
func Collect(events <-chan Event) (Output, error) {
	var last Event
	for ev := range events {
		last = ev
	}
	switch last.Kind {
	case EventRunFinished:
		if last.Result == nil {
			return Output{}, fmt.Errorf("run finished without a result")
		}
		return *last.Result, nil
	case EventRunError:
		return Output{}, fmt.Errorf("research run failed (%s): %w", last.ErrKind, last.Err)
	default:
		return Output{}, fmt.Errorf("run ended without a terminal event")
	}
}

func buildGraph(cfg RunConfig, em *emitter, maxIterations int) *graph.Graph {
	b := graph.NewBuilder()

	b.AddNode(nodeStart, graph.NodeTypeStart, func(ctx context.Context, state graph.State) (graph.State, error) {
		return state, nil
	})

	b.AddConditionNode(nodePlanNext, planCondition(cfg.Planner, em), map[string]string{
		"propose":  nodeSearchOne,
		"complete": nodeSynthesize,
	})

	b.AddNode(nodeSearchOne, graph.NodeTypeCustom, searchOneExec(cfg.Searcher, em))

	b.AddNode(nodeSynthesize, graph.NodeTypeEnd, synthesizeExec(cfg.Synthesizer, cfg.Mode, em))

	b.AddEdge(nodeStart, nodePlanNext)
	b.AddEdge(nodeSearchOne, nodePlanNext)
	b.SetStart(nodeStart)
	b.SetEnd(nodeSynthesize)
	// A loop of plan_next<->search_one runs at most max_iterations times;
	// pad generously since the planner's own policy, not this guard, is
	// the authoritative bound (spec §4.5).
	guard := maxIterations*2 + 16
	if guard < 256 {
		guard = 256
	}
	b.SetMaxVisits(guard)

	return b.Build()
}

func planCondition(planner *Planner, em *emitter) graph.ConditionFunc {
	return func(ctx context.Context, state graph.State) (string, error) {
		rctx := state["rctx"].(*Context)
		em.stepStarted(nodePlanNext)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		decision, err := planner.Decide(ctx, rctx)
		if err != nil {
			return "", fmt.Errorf("plan_next: %w", err)
		}

		state["decision"] = decision
		em.activity(nodePlanNext, decision)
		em.stepFinished(nodePlanNext)

		if decision.Kind == DecisionProposeQuestion {
			return "propose", nil
		}
		return "complete", nil
	}
}

func searchOneExec(searcher *Searcher, em *emitter) graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (graph.State, error) {
		rctx := state["rctx"].(*Context)
		decision, _ := state["decision"].(Decision)
		em.stepStarted(nodeSearchOne)

		if ctx.Err() != nil {
			return state, ctx.Err()
		}
		answer, err := searcher.Run(ctx, rctx, decision.Question)
		if err != nil {
			return state, fmt.Errorf("search_one: %w", err)
		}
		rctx.Iterations++

		em.activity(nodeSearchOne, answer)
		em.stateDelta(nodeSearchOne, rctx)
		em.stepFinished(nodeSearchOne)
		return state, nil
	}
}

func synthesizeExec(synth *Synthesizer, mode OutputKind, em *emitter) graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (graph.State, error) {
		rctx := state["rctx"].(*Context)
		em.stepStarted(nodeSynthesize)

		if ctx.Err() != nil {
			return state, ctx.Err()
		}

		var output Output
		var err error
		if mode == OutputConversational {
			output, err = synth.ComposeConversational(ctx, rctx)
		} else {
			output, err = synth.ComposeReport(ctx, rctx)
		}
		if err != nil {
			return state, fmt.Errorf("synthesize: %w", err)
		}

		state["output"] = output
		em.stepFinished(nodeSynthesize)
		return state, nil
	}
}
