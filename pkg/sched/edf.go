package sched

// AnalyzeEDF runs the earliest-deadline-first schedulability test.
// For implicit deadlines (D = T) the density test Σ C/D ≤ 1 is exact.
// For constrained deadlines it is sufficient only: a task set that
// fails the density test but keeps utilization at or below one is
// reported inconclusive rather than unschedulable.
func AnalyzeEDF(tasks []Task) *Result {
	one := 1.0
	res := &Result{
		Method:           string(PolicyEDF),
		Verdict:          Schedulable,
		Utilization:      Utilization(tasks),
		UtilizationBound: &one,
		ResponseTimes:    map[string]float64{},
	}
	if len(tasks) == 0 {
		return res
	}

	density := 0.0
	implicit := true
	for i := range tasks {
		d := tasks[i].EffectiveDeadline()
		density += tasks[i].WCETMicros / d
		if d != tasks[i].PeriodMicros {
			implicit = false
		}
	}

	switch {
	case density <= 1.0:
		res.Verdict = Schedulable
	case implicit:
		// Density equals utilization here, so exceeding one is an
		// exact rejection.
		res.Verdict = Unschedulable
	case res.Utilization > 1.0:
		res.Verdict = Unschedulable
	default:
		res.Verdict = Inconclusive
	}
	return res
}
