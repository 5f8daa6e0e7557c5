package platform

// RISC-V timing models. RV32I has no M extension, so multiply and
// divide cost a software sequence; the IMAC and GC variants carry
// hardware multipliers and, for GC, an FPU.

// RV32I is a base-integer RV32I microcontroller model at 100 MHz.
func RV32I() Model {
	return Model{
		ID:     "rv32i",
		Name:   "RISC-V RV32I",
		CPUMHz: 100,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Fixed(120),
			ClassMul:          Fixed(33),
			ClassDiv:          Fixed(40),
			ClassMemLoad:      Fixed(2),
			ClassMemStore:     Fixed(2),
			ClassBranchCond:   Range(1, 3),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(2, 4),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}

// RV32IMAC is an RV32IMAC model at 320 MHz.
func RV32IMAC() Model {
	return Model{
		ID:     "rv32imac",
		Name:   "RISC-V RV32IMAC",
		CPUMHz: 320,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Fixed(120),
			ClassMul:          Range(1, 5),
			ClassDiv:          Range(6, 33),
			ClassMemLoad:      Range(1, 2),
			ClassMemStore:     Range(1, 2),
			ClassBranchCond:   Range(1, 3),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(2, 4),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}

// RV32GC is an RV32GC application-class model at 1000 MHz.
func RV32GC() Model {
	return Model{
		ID:     "rv32gc",
		Name:   "RISC-V RV32GC",
		CPUMHz: 1000,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Range(1, 5),
			ClassMul:          Range(1, 3),
			ClassDiv:          Range(6, 30),
			ClassMemLoad:      Range(1, 8),
			ClassMemStore:     Range(1, 8),
			ClassBranchCond:   Range(1, 5),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(2, 6),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}

// RV64GC is an RV64GC application-class model at 1500 MHz.
func RV64GC() Model {
	return Model{
		ID:     "rv64gc",
		Name:   "RISC-V RV64GC",
		CPUMHz: 1500,
		Table: map[Class]Cycles{
			ClassArithInt:     Fixed(1),
			ClassArithFloat:   Range(1, 5),
			ClassMul:          Range(1, 3),
			ClassDiv:          Range(6, 30),
			ClassMemLoad:      Range(1, 10),
			ClassMemStore:     Range(1, 10),
			ClassBranchCond:   Range(1, 5),
			ClassBranchUncond: Fixed(1),
			ClassCall:         Range(2, 6),
			ClassPhi:          Fixed(0),
			ClassCast:         Fixed(1),
			ClassCmp:          Fixed(1),
			ClassOther:        Fixed(2),
		},
	}
}
