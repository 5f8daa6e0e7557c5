package platform

import (
	"fmt"
	"sort"
	"strings"
)

// registry maps platform identifiers to model constructors. Models are
// built on lookup so callers always receive a fresh value.
var registry = map[string]func() Model{
	"cortex-m0":  CortexM0,
	"cortex-m3":  CortexM3,
	"cortex-m4":  CortexM4,
	"cortex-m7":  CortexM7,
	"cortex-m33": CortexM33,
	"cortex-r4":  CortexR4,
	"cortex-r5":  CortexR5,
	"cortex-a7":  CortexA7,
	"cortex-a53": CortexA53,
	"rv32i":      RV32I,
	"rv32imac":   RV32IMAC,
	"rv32gc":     RV32GC,
	"rv64gc":     RV64GC,
}

// Lookup resolves a platform identifier (case-insensitive) to its
// timing model.
func Lookup(id string) (Model, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Model{}, fmt.Errorf("unknown platform %q (known: %s)", id, strings.Join(IDs(), ", "))
	}
	return ctor(), nil
}

// IDs returns the registered platform identifiers, sorted.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
