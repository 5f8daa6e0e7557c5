package ipet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vertexclique/lale/pkg/cfg"
	"github.com/vertexclique/lale/pkg/ir"
	"github.com/vertexclique/lale/pkg/loops"
	"github.com/vertexclique/lale/pkg/platform"
)

func loadAnalysis(t *testing.T, src string, opts loops.Options) (*cfg.Graph, *ir.Function, *loops.Analysis) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.ll")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	mod, err := ir.Load(path)
	if err != nil {
		t.Fatalf("loading fixture: %v", err)
	}
	fn := mod.Functions[0]
	g, err := cfg.Build(fn)
	if err != nil {
		t.Fatalf("building cfg: %v", err)
	}
	return g, fn, loops.Analyze(g, fn, opts)
}

func fixedCosts(worst ...uint32) []platform.Cycles {
	costs := make([]platform.Cycles, len(worst))
	for i, w := range worst {
		costs[i] = platform.Fixed(w)
	}
	return costs
}

func TestSingleBlock(t *testing.T) {
	g, _, la := loadAnalysis(t, `define void @one() {
entry:
  ret void
}
`, loops.Options{})

	m := Build(g, la, fixedCosts(7), true)
	sol, err := Solve(context.Background(), m, true, Options{})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("status = %s, want optimal", sol.Status)
	}
	if sol.Objective != 7 {
		t.Errorf("objective = %d, want 7", sol.Objective)
	}
	if len(sol.Counts) != 1 || sol.Counts[0] != 1 {
		t.Errorf("counts = %v, want [1]", sol.Counts)
	}
}

func TestStraightLineChain(t *testing.T) {
	// Three chained blocks of one add and a terminator each: every
	// block contributes 2 cycles, the chain totals 6.
	g, _, la := loadAnalysis(t, `define i32 @straight(i32 %a) {
entry:
  %t0 = add nsw i32 %a, 1
  br label %mid
mid:
  %t1 = add nsw i32 %t0, 2
  br label %last
last:
  %t2 = add nsw i32 %t1, 3
  ret i32 %t2
}
`, loops.Options{})

	m := Build(g, la, fixedCosts(2, 2, 2), true)
	sol, err := Solve(context.Background(), m, true, Options{})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.Objective != 6 {
		t.Errorf("objective = %d, want 6", sol.Objective)
	}
	for b, c := range sol.Counts {
		if c != 1 {
			t.Errorf("block %d count = %d, want 1", b, c)
		}
	}
}

func TestBranchTakesWorstArm(t *testing.T) {
	g, _, la := loadAnalysis(t, `define i32 @pick(i1 %c) {
entry:
  br i1 %c, label %cheap, label %dear
cheap:
  ret i32 1
dear:
  ret i32 2
}
`, loops.Options{})

	m := Build(g, la, fixedCosts(1, 2, 9), true)
	sol, err := Solve(context.Background(), m, true, Options{})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.Objective != 10 {
		t.Errorf("objective = %d, want 10 (entry + dear arm)", sol.Objective)
	}
	if sol.Counts[1] != 0 || sol.Counts[2] != 1 {
		t.Errorf("counts = %v, want the expensive arm taken", sol.Counts)
	}
}

const countedLoopSrc = `define i32 @sum() {
entry:
  br label %header
header:
  %i = phi i32 [ 0, %entry ], [ %inc, %body ]
  %cmp = icmp slt i32 %i, 10
  br i1 %cmp, label %body, label %done
body:
  %inc = add nuw nsw i32 %i, 1
  br label %header
done:
  ret i32 %i
}
`

func TestSimpleLoop(t *testing.T) {
	g, _, la := loadAnalysis(t, countedLoopSrc, loops.Options{})
	if len(la.Loops) != 1 || la.Loops[0].Bound != 10 {
		t.Fatalf("expected one loop with bound 10, got %+v", la.Loops)
	}

	// Header 2 cycles, body 3, exit 1, entry free: the header runs 11
	// times (10 iterations plus the final test), the body 10 times.
	costs := fixedCosts(0, 2, 3, 1)
	m := Build(g, la, costs, true)
	sol, err := Solve(context.Background(), m, true, Options{})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.Objective != 53 {
		t.Errorf("objective = %d, want 53", sol.Objective)
	}
	if sol.Counts[1] != 11 {
		t.Errorf("header count = %d, want 11", sol.Counts[1])
	}
	if sol.Counts[2] != 10 {
		t.Errorf("body count = %d, want 10", sol.Counts[2])
	}
	if sol.Counts[3] != 1 {
		t.Errorf("exit count = %d, want 1", sol.Counts[3])
	}
}

func TestLoopBoundMonotonicity(t *testing.T) {
	solveWithBound := func(bound uint64) uint64 {
		g, _, la := loadAnalysis(t, countedLoopSrc, loops.Options{})
		la.Loops[0].Bound = bound
		m := Build(g, la, fixedCosts(0, 2, 3, 1), true)
		sol, err := Solve(context.Background(), m, true, Options{})
		if err != nil {
			t.Fatalf("solve failed: %v", err)
		}
		return sol.Objective
	}

	prev := uint64(0)
	for _, bound := range []uint64{1, 5, 10, 50} {
		got := solveWithBound(bound)
		if got < prev {
			t.Errorf("WCET decreased when bound grew to %d: %d < %d", bound, got, prev)
		}
		prev = got
	}
}

func TestNestedLoops(t *testing.T) {
	g, _, la := loadAnalysis(t, `define void @nested() {
entry:
  br label %outer
outer:
  %i = phi i32 [ 0, %entry ], [ %inext, %outer.latch ]
  %ocmp = icmp slt i32 %i, 5
  br i1 %ocmp, label %inner, label %done
inner:
  %j = phi i32 [ 0, %outer ], [ %jnext, %inner.body ]
  %icmp = icmp slt i32 %j, 4
  br i1 %icmp, label %inner.body, label %outer.latch
inner.body:
  %jnext = add nsw i32 %j, 1
  br label %inner
outer.latch:
  %inext = add nsw i32 %i, 1
  br label %outer
done:
  ret void
}
`, loops.Options{})
	if len(la.Loops) != 2 {
		t.Fatalf("expected 2 loops, got %d", len(la.Loops))
	}

	// Blocks: entry, outer, inner, inner.body, outer.latch, done.
	// Outer header runs 6 times, inner header 25 (5 entries of 4
	// iterations plus the final test), inner body 20, latch 5.
	costs := fixedCosts(0, 2, 2, 4, 1, 1)
	m := Build(g, la, costs, true)
	sol, err := Solve(context.Background(), m, true, Options{})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	want := uint64(6*2 + 25*2 + 20*4 + 5*1 + 1)
	if sol.Objective != want {
		t.Errorf("objective = %d, want %d", sol.Objective, want)
	}
	if sol.Counts[2] != 25 {
		t.Errorf("inner header count = %d, want 25", sol.Counts[2])
	}
	if sol.Counts[3] != 20 {
		t.Errorf("inner body count = %d, want 20", sol.Counts[3])
	}
}

func TestInfiniteLoopIsInfeasible(t *testing.T) {
	g, _, la := loadAnalysis(t, `define void @forever() {
entry:
  br label %spin
spin:
  br label %spin
}
`, loops.Options{})

	m := Build(g, la, fixedCosts(1, 1), true)
	sol, err := Solve(context.Background(), m, true, Options{})
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible, got %v", err)
	}
	if sol == nil || sol.Status != StatusInfeasible {
		t.Errorf("status = %+v, want infeasible", sol)
	}
}

func TestUnreachableBlockContributesNothing(t *testing.T) {
	g, _, la := loadAnalysis(t, `define void @trap(i1 %c) {
entry:
  ret void
dead:
  unreachable
}
`, loops.Options{})

	m := Build(g, la, fixedCosts(1, 1000), true)
	sol, err := Solve(context.Background(), m, true, Options{})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.Objective != 1 {
		t.Errorf("objective = %d, want 1", sol.Objective)
	}
	if sol.Counts[1] != 0 {
		t.Errorf("unreachable block count = %d, want 0", sol.Counts[1])
	}
}

func TestBCETTakesCheapArm(t *testing.T) {
	g, _, la := loadAnalysis(t, `define i32 @pick(i1 %c) {
cond:
  br i1 %c, label %cheap, label %dear
cheap:
  ret i32 1
dear:
  ret i32 2
}
`, loops.Options{})

	costs := []platform.Cycles{platform.Range(1, 2), platform.Range(2, 4), platform.Range(9, 12)}
	m := Build(g, la, costs, false)
	sol, err := Solve(context.Background(), m, false, Options{})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.Objective != 3 {
		t.Errorf("BCET objective = %d, want 3 (entry best + cheap arm best)", sol.Objective)
	}
	if sol.Counts[1] != 1 || sol.Counts[2] != 0 {
		t.Errorf("counts = %v, want the cheap arm taken", sol.Counts)
	}
}

func TestCancelledContext(t *testing.T) {
	g, _, la := loadAnalysis(t, countedLoopSrc, loops.Options{})
	m := Build(g, la, fixedCosts(0, 2, 3, 1), true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Solve(ctx, m, true, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
