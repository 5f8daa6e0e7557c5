package platform

// ARM Cortex-M, Cortex-R and Cortex-A timing models. Cycle counts come
// from the vendor technical reference manuals, flattened to the class
// granularity the analyzer works at. Memory costs assume on-chip RAM;
// flash wait states are folded into the worst case where the core has
// no prefetch.

// CortexM0 is the ARMv6-M Cortex-M0/M0+ model at 48 MHz. No hardware
// divider and no FPU: div and float work fall back to library routines.
func CortexM0() Model {
	return Model{
		ID:     "cortex-m0",
		Name:   "ARM Cortex-M0",
		CPUMHz: 48,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Fixed(100),
			ClassMul:          Fixed(32),
			ClassDiv:          Fixed(40),
			ClassMemLoad:      Fixed(2),
			ClassMemStore:     Fixed(2),
			ClassBranchCond:   Range(1, 3),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(3, 4),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}

// CortexM3 is the ARMv7-M Cortex-M3 model at 72 MHz.
func CortexM3() Model {
	return Model{
		ID:     "cortex-m3",
		Name:   "ARM Cortex-M3",
		CPUMHz: 72,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Fixed(100),
			ClassMul:          Fixed(1),
			ClassDiv:          Range(2, 12),
			ClassMemLoad:      Range(1, 2),
			ClassMemStore:     Range(1, 2),
			ClassBranchCond:   Range(1, 3),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(3, 5),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}

// CortexM4 is the ARMv7E-M Cortex-M4 model at 168 MHz, with FPU.
func CortexM4() Model {
	return Model{
		ID:     "cortex-m4",
		Name:   "ARM Cortex-M4",
		CPUMHz: 168,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Fixed(1),
			ClassMul:          Range(1, 2),
			ClassDiv:          Fixed(12),
			ClassMemLoad:      Range(1, 2),
			ClassMemStore:     Range(1, 2),
			ClassBranchCond:   Range(1, 3),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(3, 5),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}

// CortexM7 is the ARMv7E-M Cortex-M7 model at 400 MHz, dual-issue with
// caches; load/store worst cases cover cache misses to TCM.
func CortexM7() Model {
	return Model{
		ID:     "cortex-m7",
		Name:   "ARM Cortex-M7",
		CPUMHz: 400,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Fixed(1),
			ClassMul:          Fixed(1),
			ClassDiv:          Range(3, 12),
			ClassMemLoad:      Range(1, 3),
			ClassMemStore:     Range(1, 3),
			ClassBranchCond:   Range(1, 2),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(2, 4),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}

// CortexM33 is the ARMv8-M Cortex-M33 model at 120 MHz.
func CortexM33() Model {
	return Model{
		ID:     "cortex-m33",
		Name:   "ARM Cortex-M33",
		CPUMHz: 120,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Fixed(1),
			ClassMul:          Fixed(1),
			ClassDiv:          Range(2, 12),
			ClassMemLoad:      Range(1, 2),
			ClassMemStore:     Range(1, 2),
			ClassBranchCond:   Range(1, 3),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(3, 5),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}

// CortexR4 is the ARMv7-R Cortex-R4 model at 600 MHz.
func CortexR4() Model {
	return Model{
		ID:     "cortex-r4",
		Name:   "ARM Cortex-R4",
		CPUMHz: 600,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Fixed(2),
			ClassMul:          Fixed(1),
			ClassDiv:          Range(4, 12),
			ClassMemLoad:      Range(1, 3),
			ClassMemStore:     Range(1, 3),
			ClassBranchCond:   Range(1, 3),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(2, 5),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}

// CortexR5 is the ARMv7-R Cortex-R5 model at 800 MHz, with FPU.
func CortexR5() Model {
	return Model{
		ID:     "cortex-r5",
		Name:   "ARM Cortex-R5",
		CPUMHz: 800,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Fixed(1),
			ClassMul:          Fixed(1),
			ClassDiv:          Range(4, 12),
			ClassMemLoad:      Range(1, 3),
			ClassMemStore:     Range(1, 3),
			ClassBranchCond:   Range(1, 3),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(2, 5),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}

// CortexA7 is the ARMv7-A Cortex-A7 model at 1200 MHz. Worst-case
// memory costs assume an L1 miss served from L2.
func CortexA7() Model {
	return Model{
		ID:     "cortex-a7",
		Name:   "ARM Cortex-A7",
		CPUMHz: 1200,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Fixed(1),
			ClassMul:          Range(1, 3),
			ClassDiv:          Range(4, 20),
			ClassMemLoad:      Range(1, 10),
			ClassMemStore:     Range(1, 10),
			ClassBranchCond:   Range(1, 8),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(2, 8),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}

// CortexA53 is the ARMv8-A Cortex-A53 model at 1400 MHz.
func CortexA53() Model {
	return Model{
		ID:     "cortex-a53",
		Name:   "ARM Cortex-A53",
		CPUMHz: 1400,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Fixed(1),
			ClassMul:          Range(1, 3),
			ClassDiv:          Range(4, 20),
			ClassMemLoad:      Range(1, 12),
			ClassMemStore:     Range(1, 12),
			ClassBranchCond:   Range(1, 8),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(2, 8),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}
