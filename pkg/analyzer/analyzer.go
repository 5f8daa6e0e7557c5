// Package analyzer orchestrates the analysis pipeline: IR loading,
// CFG construction, loop analysis, block timing, IPET solving and
// schedulability, joined into a report. Functions are analyzed
// independently and may be dispatched to a bounded worker pool; the
// platform model and loaded modules are shared read-only.
package analyzer

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vertexclique/lale/pkg/cache"
	"github.com/vertexclique/lale/pkg/cfg"
	"github.com/vertexclique/lale/pkg/ipet"
	"github.com/vertexclique/lale/pkg/ir"
	"github.com/vertexclique/lale/pkg/loops"
	"github.com/vertexclique/lale/pkg/platform"
	"github.com/vertexclique/lale/pkg/report"
	"github.com/vertexclique/lale/pkg/sched"
	"github.com/vertexclique/lale/pkg/timing"
)

// Error tags attached to per-function results. Tagged functions stay
// in the report with a null WCET; the rest of the batch continues.
const (
	TagMalformedFunction = "malformed_function"
	TagInfiniteExecution = "infinite_execution"
	TagSolverTimeout     = "solver_timeout"
	TagSolverError       = "solver_error"
	TagCancelled         = "cancelled"
)

// Options configures per-function analysis.
type Options struct {
	Platform platform.Model
	// DefaultLoopBound is applied when no iteration bound can be
	// inferred; zero means 100.
	DefaultLoopBound uint64
	// LoopBounds are user overrides keyed by function and header label.
	LoopBounds map[loops.BoundKey]uint64
	// SolverTimeout caps each ILP solve; zero means 60s.
	SolverTimeout time.Duration
	// Workers bounds the per-function worker pool; zero means one per
	// CPU.
	Workers int
	// Cache, when set, is consulted per file before analysis and
	// updated afterwards.
	Cache *cache.Store
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// AnalyzeFunction runs the full pipeline on one function. Failures
// are recorded on the result, never returned: a broken function does
// not invalidate the batch.
func AnalyzeFunction(ctx context.Context, fn *ir.Function, opts Options) report.FunctionWCET {
	res := report.FunctionWCET{Name: fn.Name}

	g, err := cfg.Build(fn)
	if err != nil {
		res.Error = TagMalformedFunction + ": " + err.Error()
		return res
	}
	res.BlockCount = g.NumBlocks()
	res.EdgeCount = len(g.Edges)

	la := loops.Analyze(g, fn, loops.Options{
		Bounds:       opts.LoopBounds,
		DefaultBound: opts.DefaultLoopBound,
	})
	res.LoopCount = len(la.Loops)
	for _, w := range la.Warnings {
		res.Warnings = append(res.Warnings, w.Kind+": "+w.Detail)
	}

	costs := timing.ComputeBlocks(fn, opts.Platform)
	for _, w := range costs.Warnings {
		res.Warnings = append(res.Warnings, w.Kind+": "+w.Detail)
	}

	if err := ctx.Err(); err != nil {
		res.Error = TagCancelled
		return res
	}

	solveOpts := ipet.Options{Timeout: opts.SolverTimeout}

	worst := ipet.Build(g, la, costs.Blocks, true)
	wsol, err := ipet.Solve(ctx, worst, true, solveOpts)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			res.Error = TagCancelled
		case wsol != nil && wsol.Status == ipet.StatusInfeasible:
			res.Error = TagInfiniteExecution + ": no path from entry reaches an exit"
		default:
			res.Error = TagSolverError + ": " + err.Error()
		}
		return res
	}
	if wsol.Status == ipet.StatusTimeout {
		res.Inconclusive = true
		res.Warnings = append(res.Warnings, "inconclusive: solver timeout, best feasible bound reported")
		if wsol.Counts == nil {
			res.Error = TagSolverTimeout + ": no feasible bound found within the time limit"
			return res
		}
	}

	wcet := wsol.Objective
	wcetUs := opts.Platform.CyclesToMicros(wcet)
	res.WCETCycles = &wcet
	res.WCETMicros = &wcetUs

	best := ipet.Build(g, la, costs.Blocks, false)
	bsol, err := ipet.Solve(ctx, best, false, solveOpts)
	if err == nil && bsol.Counts != nil {
		bcet := bsol.Objective
		bcetUs := opts.Platform.CyclesToMicros(bcet)
		res.BCETCycles = &bcet
		res.BCETMicros = &bcetUs
		if bsol.Status == ipet.StatusTimeout {
			res.Inconclusive = true
		}
	}

	return res
}

// AnalyzeModule analyzes every function of a module on a bounded
// worker pool. Results come back in function order regardless of
// completion order.
func AnalyzeModule(ctx context.Context, mod *ir.Module, opts Options) []report.FunctionWCET {
	results := make([]report.FunctionWCET, len(mod.Functions))

	eg := &errgroup.Group{}
	eg.SetLimit(opts.workers())
	for i, fn := range mod.Functions {
		if ctx.Err() != nil {
			results[i] = report.FunctionWCET{Name: fn.Name, Error: TagCancelled}
			continue
		}
		i, fn := i, fn
		eg.Go(func() error {
			results[i] = AnalyzeFunction(ctx, fn, opts)
			return nil
		})
	}
	eg.Wait()

	return results
}

// AnalyzeFile loads one IR file and analyzes its functions, going
// through the result cache when one is configured.
func AnalyzeFile(ctx context.Context, path string, opts Options) ([]report.FunctionWCET, error) {
	var key cache.Key
	if opts.Cache != nil {
		hash, err := cache.HashFile(path)
		if err == nil {
			key = cache.Key{ContentHash: hash, Platform: opts.Platform.ID}
			if cached, err := opts.Cache.Get(key); err == nil {
				return cached, nil
			}
		}
	}

	mod, err := ir.Load(path)
	if err != nil {
		return nil, err
	}
	results := AnalyzeModule(ctx, mod, opts)

	if opts.Cache != nil && key.ContentHash != "" && ctx.Err() == nil {
		opts.Cache.Put(key, results)
	}
	return results, nil
}

// TaskSpec declares one periodic task over an analyzed function.
type TaskSpec struct {
	Name           string
	Function       string
	PeriodMicros   float64
	DeadlineMicros float64
	Priority       *int
	Preemptible    bool
}

// RunOptions configures a full batch run.
type RunOptions struct {
	Options
	Policy sched.Policy
	// TaskSpecs is the explicit task set in configuration order.
	// Ignored when AutoTasks is set.
	TaskSpecs []TaskSpec
	// AutoTasks derives one task per successfully analyzed function.
	AutoTasks bool
	// AutoPeriodMicros is the uniform period used in auto mode.
	AutoPeriodMicros float64
	// Now supplies the report timestamp; zero means time.Now.
	Now time.Time
}

// Skipped re-exports the batch loader's skip record.
type Skipped = ir.Skipped

// Run analyzes a list of IR files and decides schedulability of the
// configured task set. Files that fail to load are skipped and
// reported; per-function failures stay in the report as error tags.
// Task-set errors (a task naming an unknown function, an invalid
// period or deadline) are fatal.
func Run(ctx context.Context, paths []string, opts RunOptions) (*report.Report, []Skipped, error) {
	var functions []report.FunctionWCET
	var skipped []Skipped

	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		results, err := AnalyzeFile(ctx, path, opts.Options)
		if err != nil {
			skipped = append(skipped, Skipped{Path: path, Err: err})
			continue
		}
		functions = append(functions, results...)
	}

	tasks, err := buildTasks(functions, opts)
	if err != nil {
		return nil, skipped, err
	}

	var schedResult *sched.Result
	var timeline *sched.Timeline
	if len(tasks) > 0 {
		if err := sched.Validate(tasks); err != nil {
			return nil, skipped, err
		}
		if incompleteWCETs(functions, tasks) {
			schedResult = &sched.Result{
				Method:        string(opts.Policy),
				Verdict:       sched.Inconclusive,
				ResponseTimes: map[string]float64{},
			}
		} else {
			switch opts.Policy {
			case sched.PolicyEDF:
				schedResult = sched.AnalyzeEDF(tasks)
			default:
				schedResult = sched.AnalyzeRMA(tasks)
				sched.AssignRMAPriorities(tasks)
			}
			if schedResult.Verdict == sched.Schedulable {
				timeline, err = sched.GenerateTimeline(tasks, opts.Policy)
				if err != nil {
					return nil, skipped, fmt.Errorf("generating schedule: %w", err)
				}
			}
		}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	rep := report.Assemble(opts.Platform.ID, now, functions, tasks, schedResult, timeline)
	rep.Cancelled = ctx.Err() != nil
	return rep, skipped, nil
}

// buildTasks materializes the task set from the run options, wiring
// each task to its function's WCET.
func buildTasks(functions []report.FunctionWCET, opts RunOptions) ([]sched.Task, error) {
	byName := map[string]*report.FunctionWCET{}
	for i := range functions {
		byName[functions[i].Name] = &functions[i]
	}

	if opts.AutoTasks {
		if opts.AutoPeriodMicros <= 0 {
			return nil, &sched.InvalidTaskConfigError{Task: "auto", Reason: "auto mode requires a positive period"}
		}
		var tasks []sched.Task
		for i := range functions {
			f := &functions[i]
			if f.WCETCycles == nil {
				continue
			}
			tasks = append(tasks, sched.Task{
				Name:         f.Name,
				Function:     f.Name,
				WCETCycles:   *f.WCETCycles,
				WCETMicros:   *f.WCETMicros,
				PeriodMicros: opts.AutoPeriodMicros,
				Preemptible:  true,
			})
		}
		return tasks, nil
	}

	var tasks []sched.Task
	for _, spec := range opts.TaskSpecs {
		f, ok := byName[spec.Function]
		if !ok {
			return nil, &sched.InvalidTaskConfigError{
				Task:   spec.Name,
				Reason: "references unknown function " + strconv.Quote(spec.Function),
			}
		}
		t := sched.Task{
			Name:           spec.Name,
			Function:       spec.Function,
			PeriodMicros:   spec.PeriodMicros,
			DeadlineMicros: spec.DeadlineMicros,
			Priority:       spec.Priority,
			Preemptible:    spec.Preemptible,
		}
		if f.WCETCycles != nil {
			t.WCETCycles = *f.WCETCycles
			t.WCETMicros = *f.WCETMicros
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// incompleteWCETs reports whether any task's function lacks a usable
// WCET, which forces an inconclusive schedulability verdict.
func incompleteWCETs(functions []report.FunctionWCET, tasks []sched.Task) bool {
	byName := map[string]*report.FunctionWCET{}
	for i := range functions {
		byName[functions[i].Name] = &functions[i]
	}
	for i := range tasks {
		f, ok := byName[tasks[i].Function]
		if !ok || f.WCETCycles == nil || f.Inconclusive {
			return true
		}
	}
	return false
}
