package loops

import (
	"strconv"
	"strings"

	"github.com/vertexclique/lale/pkg/cfg"
	"github.com/vertexclique/lale/pkg/ir"
)

// inferBound fills in a loop's iteration bound, trying in order:
// constant trip count, induction-variable analysis, user annotation,
// configured default. The provenance is recorded on the loop.
func inferBound(l *Loop, g *cfg.Graph, fn *ir.Function, opts Options, res *Analysis) {
	if !l.Irreducible {
		if bound, prov, ok := matchExitComparison(l, g, fn); ok {
			l.Bound = bound
			l.Provenance = prov
			return
		}
		if bound, ok := opts.Bounds[BoundKey{Function: fn.Name, Header: g.Labels[l.Header]}]; ok {
			l.Bound = bound
			l.Provenance = ProvAnnotation
			return
		}
	}

	l.Bound = opts.DefaultBound
	l.Provenance = ProvDefault
	res.Warnings = append(res.Warnings, Warning{
		Kind:   WarnLoopBoundDefaulted,
		Block:  l.Header,
		Detail: "no bound inferred for loop at " + g.Labels[l.Header] + "; using default " + strconv.FormatUint(opts.DefaultBound, 10),
	})
}

// matchExitComparison pattern-matches the loop's exit test against a
// monotone induction variable with constant start, limit and step.
func matchExitComparison(l *Loop, g *cfg.Graph, fn *ir.Function) (uint64, Provenance, bool) {
	exiting, exitOnTrue := findExitingBlock(l, g, fn)
	if exiting == nil {
		return 0, "", false
	}

	cmp := findInstruction(exiting, exiting.Term.Cond, "icmp")
	if cmp == nil || len(cmp.Operands) < 2 {
		return 0, "", false
	}

	pred := normalizePred(cmp.Pred)
	lhs, rhs := cmp.Operands[0], cmp.Operands[1]
	if !strings.HasPrefix(lhs, "%") {
		// Constant on the left: flip the comparison around.
		lhs, rhs = rhs, lhs
		pred = swapPred(pred)
	}
	if !strings.HasPrefix(lhs, "%") || strings.HasPrefix(rhs, "%") {
		return 0, "", false
	}
	limit, err := strconv.ParseInt(rhs, 10, 64)
	if err != nil {
		return 0, "", false
	}
	if exitOnTrue {
		pred = negatePred(pred)
	}

	ivar := strings.TrimPrefix(lhs, "%")
	phi, direct := resolveInductionVar(l, g, fn, ivar)
	if phi == nil {
		return 0, "", false
	}

	start, step, ok := phiStartAndStep(l, g, fn, phi)
	if !ok {
		return 0, "", false
	}

	iters, ok := tripCount(pred, start, limit, step)
	if !ok {
		return 0, "", false
	}

	prov := ProvInduction
	if direct && (step == 1 || step == -1) {
		prov = ProvTripCount
	}
	return iters, prov, true
}

// findExitingBlock locates a conditionally-branching block in the
// body with exactly one successor outside the loop, preferring the
// header. exitOnTrue reports whether the true edge leaves the loop.
func findExitingBlock(l *Loop, g *cfg.Graph, fn *ir.Function) (*ir.Block, bool) {
	candidates := append([]int{l.Header}, l.BodyBlocks...)
	for _, b := range candidates {
		if !l.Contains(b) {
			continue
		}
		blk := fn.Blocks[b]
		if blk.Term.Kind != ir.TermCondBr || len(blk.Term.Targets) != 2 || blk.Term.Cond == "" {
			continue
		}
		trueIdx, ok1 := fn.BlockByLabel(blk.Term.Targets[0])
		falseIdx, ok2 := fn.BlockByLabel(blk.Term.Targets[1])
		if !ok1 || !ok2 {
			continue
		}
		trueInside := l.Contains(trueIdx)
		falseInside := l.Contains(falseIdx)
		if trueInside == falseInside {
			continue
		}
		return blk, !trueInside
	}
	return nil, false
}

// findInstruction finds the instruction defining a register within a
// block, filtered by opcode.
func findInstruction(blk *ir.Block, name, opcode string) *ir.Instruction {
	for i := range blk.Instructions {
		inst := &blk.Instructions[i]
		if inst.Name == name && inst.Opcode == opcode {
			return inst
		}
	}
	return nil
}

// resolveInductionVar resolves the compared register to a header phi.
// direct is true when the phi itself is compared rather than its
// incremented successor.
func resolveInductionVar(l *Loop, g *cfg.Graph, fn *ir.Function, name string) (*ir.Instruction, bool) {
	header := fn.Blocks[l.Header]
	if phi := findInstruction(header, name, "phi"); phi != nil {
		return phi, true
	}
	// The comparison may be against the stepped value (%inc) instead
	// of the phi. Trace one add/sub back to a header phi.
	for _, b := range l.BodyBlocks {
		blk := fn.Blocks[b]
		for i := range blk.Instructions {
			inst := &blk.Instructions[i]
			if inst.Name != name {
				continue
			}
			if inst.Opcode != "add" && inst.Opcode != "sub" {
				return nil, false
			}
			for _, op := range inst.Operands {
				if phi := findInstruction(header, strings.TrimPrefix(op, "%"), "phi"); phi != nil {
					return phi, false
				}
			}
			return nil, false
		}
	}
	return nil, false
}

// phiStartAndStep extracts the constant initial value (incoming from
// outside the loop) and the constant step (incoming value defined by
// add/sub of the phi and a constant inside the loop).
func phiStartAndStep(l *Loop, g *cfg.Graph, fn *ir.Function, phi *ir.Instruction) (start, step int64, ok bool) {
	var haveStart, haveStep bool
	for _, inc := range phi.Incoming {
		predIdx, found := fn.BlockByLabel(inc.Label)
		if !found {
			return 0, 0, false
		}
		if !l.Contains(predIdx) {
			v, err := strconv.ParseInt(inc.Value, 10, 64)
			if err != nil {
				return 0, 0, false
			}
			start = v
			haveStart = true
			continue
		}
		stepName := strings.TrimPrefix(inc.Value, "%")
		s, found := findStep(l, fn, phi.Name, stepName)
		if !found {
			return 0, 0, false
		}
		step = s
		haveStep = true
	}
	return start, step, haveStart && haveStep
}

// findStep locates "%name = add/sub %phi, C" inside the loop body and
// returns the signed step.
func findStep(l *Loop, fn *ir.Function, phiName, name string) (int64, bool) {
	for _, b := range l.BodyBlocks {
		blk := fn.Blocks[b]
		for i := range blk.Instructions {
			inst := &blk.Instructions[i]
			if inst.Name != name || (inst.Opcode != "add" && inst.Opcode != "sub") {
				continue
			}
			if len(inst.Consts) != 1 {
				return 0, false
			}
			usesPhi := false
			for _, op := range inst.Operands {
				if strings.TrimPrefix(op, "%") == phiName {
					usesPhi = true
				}
			}
			if !usesPhi {
				return 0, false
			}
			step := inst.Consts[0]
			if inst.Opcode == "sub" {
				step = -step
			}
			if step == 0 {
				return 0, false
			}
			return step, true
		}
	}
	return 0, false
}

// tripCount computes how many times the loop body runs given the
// continue predicate over start, limit and step.
func tripCount(pred string, start, limit, step int64) (uint64, bool) {
	switch pred {
	case "lt":
		if step <= 0 {
			return 0, false
		}
		return clampIters(ceilDiv(limit-start, step)), true
	case "le":
		if step <= 0 {
			return 0, false
		}
		return clampIters(ceilDiv(limit-start+1, step)), true
	case "gt":
		if step >= 0 {
			return 0, false
		}
		return clampIters(ceilDiv(start-limit, -step)), true
	case "ge":
		if step >= 0 {
			return 0, false
		}
		return clampIters(ceilDiv(start-limit+1, -step)), true
	case "ne":
		diff := limit - start
		if step == 0 || diff%step != 0 || diff/step < 0 {
			return 0, false
		}
		return uint64(diff / step), true
	default:
		return 0, false
	}
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func clampIters(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}

// normalizePred drops signedness from an icmp predicate.
func normalizePred(pred string) string {
	switch pred {
	case "slt", "ult":
		return "lt"
	case "sle", "ule":
		return "le"
	case "sgt", "ugt":
		return "gt"
	case "sge", "uge":
		return "ge"
	case "eq":
		return "eq"
	case "ne":
		return "ne"
	default:
		return pred
	}
}

func swapPred(pred string) string {
	switch pred {
	case "lt":
		return "gt"
	case "le":
		return "ge"
	case "gt":
		return "lt"
	case "ge":
		return "le"
	default:
		return pred
	}
}

func negatePred(pred string) string {
	switch pred {
	case "lt":
		return "ge"
	case "le":
		return "gt"
	case "gt":
		return "le"
	case "ge":
		return "lt"
	case "eq":
		return "ne"
	case "ne":
		return "eq"
	default:
		return pred
	}
}
