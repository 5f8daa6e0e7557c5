// Package timing classifies IR instructions and sums per-block cycle
// costs against a platform timing model. Classification is a pure
// function of the opcode; the platform table is immutable within an
// analysis.
package timing

import (
	"github.com/vertexclique/lale/pkg/ir"
	"github.com/vertexclique/lale/pkg/platform"
)

// WarnUnknownInstructionClass marks an opcode that fell through to the
// conservative "other" class.
const WarnUnknownInstructionClass = "unknown_instruction_class"

// Warning is a non-fatal classification diagnostic.
type Warning struct {
	Kind   string `json:"kind"`
	Block  int    `json:"block"`
	Detail string `json:"detail"`
}

// classTable maps opcodes to instruction classes. Opcodes absent here
// classify as ClassOther.
var classTable = map[string]platform.Class{
	"add":           platform.ClassArithInt,
	"sub":           platform.ClassArithInt,
	"and":           platform.ClassArithInt,
	"or":            platform.ClassArithInt,
	"xor":           platform.ClassArithInt,
	"shl":           platform.ClassArithInt,
	"lshr":          platform.ClassArithInt,
	"ashr":          platform.ClassArithInt,
	"getelementptr": platform.ClassArithInt,

	"fadd": platform.ClassArithFloat,
	"fsub": platform.ClassArithFloat,
	"fneg": platform.ClassArithFloat,

	"mul":  platform.ClassMul,
	"fmul": platform.ClassMul,

	"udiv": platform.ClassDiv,
	"sdiv": platform.ClassDiv,
	"urem": platform.ClassDiv,
	"srem": platform.ClassDiv,
	"fdiv": platform.ClassDiv,
	"frem": platform.ClassDiv,

	"load":  platform.ClassMemLoad,
	"store": platform.ClassMemStore,

	"icmp": platform.ClassCmp,
	"fcmp": platform.ClassCmp,

	"phi":  platform.ClassPhi,
	"call": platform.ClassCall,

	"trunc":         platform.ClassCast,
	"zext":          platform.ClassCast,
	"sext":          platform.ClassCast,
	"fptrunc":       platform.ClassCast,
	"fpext":         platform.ClassCast,
	"fptoui":        platform.ClassCast,
	"fptosi":        platform.ClassCast,
	"uitofp":        platform.ClassCast,
	"sitofp":        platform.ClassCast,
	"ptrtoint":      platform.ClassCast,
	"inttoptr":      platform.ClassCast,
	"bitcast":       platform.ClassCast,
	"addrspacecast": platform.ClassCast,
	"freeze":        platform.ClassCast,
}

// Classify maps an instruction to its timing class.
func Classify(inst ir.Instruction) platform.Class {
	if c, ok := classTable[inst.Opcode]; ok {
		return c
	}
	return platform.ClassOther
}

// TerminatorClass maps a terminator to its timing class. ok is false
// for unreachable, which costs nothing.
func TerminatorClass(t ir.Terminator) (platform.Class, bool) {
	switch t.Kind {
	case ir.TermBr:
		return platform.ClassBranchUncond, true
	case ir.TermCondBr, ir.TermSwitch:
		return platform.ClassBranchCond, true
	case ir.TermRet:
		return platform.ClassBranchUncond, true
	default:
		return platform.ClassOther, false
	}
}

// Result holds per-block cycle costs for one function, indexed by
// block id.
type Result struct {
	Blocks   []platform.Cycles `json:"blocks"`
	Warnings []Warning         `json:"warnings,omitempty"`
}

// ComputeBlocks sums instruction-class costs per block, including the
// terminator's own cost.
func ComputeBlocks(fn *ir.Function, model platform.Model) *Result {
	res := &Result{Blocks: make([]platform.Cycles, len(fn.Blocks))}

	for i, b := range fn.Blocks {
		total := platform.Cycles{}
		for _, inst := range b.Instructions {
			class := Classify(inst)
			if class == platform.ClassOther {
				res.Warnings = append(res.Warnings, Warning{
					Kind:   WarnUnknownInstructionClass,
					Block:  i,
					Detail: "opcode " + inst.Opcode + " classified as other",
				})
			}
			total = total.Add(model.Timing(class))
		}
		if class, ok := TerminatorClass(b.Term); ok {
			total = total.Add(model.Timing(class))
		}
		res.Blocks[i] = total
	}

	return res
}
