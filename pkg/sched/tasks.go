// Package sched decides schedulability of a periodic task set under
// fixed-priority (rate-monotonic) or dynamic-priority (earliest
// deadline first) policies, and expands a schedulable set into a
// concrete preemptive timeline over the hyperperiod.
package sched

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Policy selects the scheduling analysis.
type Policy string

const (
	PolicyRMA Policy = "rma"
	PolicyEDF Policy = "edf"
)

// ParsePolicy parses a policy name, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rma":
		return PolicyRMA, nil
	case "edf":
		return PolicyEDF, nil
	default:
		return "", fmt.Errorf("unknown scheduling policy %q (want rma or edf)", s)
	}
}

// Task is one periodic real-time task backed by an analyzed function.
type Task struct {
	Name           string  `json:"name"`
	Function       string  `json:"function"`
	WCETCycles     uint64  `json:"wcet_cycles"`
	WCETMicros     float64 `json:"wcet_us"`
	PeriodMicros   float64 `json:"period_us,omitempty"`
	DeadlineMicros float64 `json:"deadline_us,omitempty"`
	Priority       *int    `json:"priority,omitempty"`
	Preemptible    bool    `json:"preemptible"`
}

// EffectiveDeadline returns the task deadline, defaulting to the
// period (implicit deadline).
func (t *Task) EffectiveDeadline() float64 {
	if t.DeadlineMicros > 0 {
		return t.DeadlineMicros
	}
	return t.PeriodMicros
}

// InvalidTaskConfigError reports a task set the analyses cannot
// accept.
type InvalidTaskConfigError struct {
	Task   string
	Reason string
}

func (e *InvalidTaskConfigError) Error() string {
	return fmt.Sprintf("invalid task config for %q: %s", e.Task, e.Reason)
}

// Validate checks the task-set invariants: positive integral periods,
// 0 < deadline ≤ period, unique names.
func Validate(tasks []Task) error {
	seen := map[string]bool{}
	for i := range tasks {
		t := &tasks[i]
		if t.Name == "" {
			return &InvalidTaskConfigError{Task: t.Function, Reason: "task has no name"}
		}
		if seen[t.Name] {
			return &InvalidTaskConfigError{Task: t.Name, Reason: "duplicate task name"}
		}
		seen[t.Name] = true
		if t.PeriodMicros <= 0 {
			return &InvalidTaskConfigError{Task: t.Name, Reason: "period must be positive"}
		}
		if t.PeriodMicros != math.Trunc(t.PeriodMicros) {
			return &InvalidTaskConfigError{Task: t.Name, Reason: "period must be a whole number of microseconds"}
		}
		d := t.EffectiveDeadline()
		if d <= 0 || d > t.PeriodMicros {
			return &InvalidTaskConfigError{Task: t.Name, Reason: "deadline must satisfy 0 < deadline ≤ period"}
		}
	}
	return nil
}

// Verdict is the schedulability outcome.
type Verdict string

const (
	Schedulable   Verdict = "schedulable"
	Unschedulable Verdict = "unschedulable"
	Inconclusive  Verdict = "inconclusive"
)

// Result is a schedulability analysis outcome.
type Result struct {
	Method           string             `json:"method"`
	Verdict          Verdict            `json:"result"`
	Utilization      float64            `json:"utilization"`
	UtilizationBound *float64           `json:"utilization_bound,omitempty"`
	ResponseTimes    map[string]float64 `json:"response_times"`
}

// Utilization is Σ C_i / T_i.
func Utilization(tasks []Task) float64 {
	u := 0.0
	for i := range tasks {
		u += tasks[i].WCETMicros / tasks[i].PeriodMicros
	}
	return u
}

// Hyperperiod returns the least common multiple of the task periods
// in microseconds.
func Hyperperiod(tasks []Task) uint64 {
	h := uint64(1)
	for i := range tasks {
		h = lcm(h, uint64(tasks[i].PeriodMicros))
	}
	return h
}

func lcm(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// byRMAPriority orders tasks by increasing period, ties broken by
// name. Index order is priority order: earlier is higher.
func byRMAPriority(tasks []Task) []Task {
	ordered := append([]Task(nil), tasks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].PeriodMicros != ordered[j].PeriodMicros {
			return ordered[i].PeriodMicros < ordered[j].PeriodMicros
		}
		return ordered[i].Name < ordered[j].Name
	})
	return ordered
}
