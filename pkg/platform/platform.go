// Package platform defines static hardware timing models.
// A model maps instruction classes to best/worst cycle counts for a
// specific core and carries the CPU frequency used for cycle-to-time
// conversion. Models are plain values; new platforms are new data.
package platform

// Class is the instruction classification used by the timing tables.
// The set is closed: anything the classifier does not recognize maps
// to ClassOther.
type Class string

const (
	ClassArithInt     Class = "arith_int"
	ClassArithFloat   Class = "arith_float"
	ClassMul          Class = "mul"
	ClassDiv          Class = "div"
	ClassMemLoad      Class = "mem_load"
	ClassMemStore     Class = "mem_store"
	ClassBranchCond   Class = "branch_cond"
	ClassBranchUncond Class = "branch_uncond"
	ClassCall         Class = "call"
	ClassPhi          Class = "phi"
	ClassCast         Class = "cast"
	ClassCmp          Class = "cmp"
	ClassOther        Class = "other"
)

// Cycles is an instruction cost as a best/worst pair.
// Invariant: Best <= Worst.
type Cycles struct {
	Best  uint32 `json:"best"`
	Worst uint32 `json:"worst"`
}

// Fixed returns a cost with identical best and worst case.
func Fixed(n uint32) Cycles {
	return Cycles{Best: n, Worst: n}
}

// Range returns a cost with distinct best and worst case.
func Range(best, worst uint32) Cycles {
	return Cycles{Best: best, Worst: worst}
}

// Add returns the component-wise sum of two costs.
func (c Cycles) Add(o Cycles) Cycles {
	return Cycles{Best: c.Best + o.Best, Worst: c.Worst + o.Worst}
}

// Model is an immutable platform timing table.
type Model struct {
	// ID is the registry identifier, e.g. "cortex-m4".
	ID string `json:"id"`
	// Name is the human-readable core name.
	Name string `json:"name"`
	// CPUMHz is the core clock in megahertz.
	CPUMHz uint32 `json:"cpu_mhz"`
	// Table maps instruction classes to cycle costs.
	Table map[Class]Cycles `json:"table"`
}

// fallbackCost is charged for classes absent from a table. Two cycles
// matches the cost of ClassOther, keeping unknown work conservative.
var fallbackCost = Fixed(2)

// Timing returns the cost of an instruction class on this platform.
func (m Model) Timing(c Class) Cycles {
	if cy, ok := m.Table[c]; ok {
		return cy
	}
	return fallbackCost
}

// CyclesToMicros converts a cycle count to microseconds at the model's
// clock: us = cycles / CPU_MHz.
func (m Model) CyclesToMicros(cycles uint64) float64 {
	return float64(cycles) / float64(m.CPUMHz)
}

// MicrosToCycles converts microseconds back to cycles at the model's
// clock, rounding down.
func (m Model) MicrosToCycles(us float64) uint64 {
	return uint64(us * float64(m.CPUMHz))
}
