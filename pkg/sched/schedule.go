package sched

import (
	"fmt"
	"math"
	"sort"
)

// IdleTask names the pseudo-task used for idle timeline gaps.
const IdleTask = "IDLE"

// Slot is one contiguous interval of the hyperperiod timeline.
type Slot struct {
	StartMicros    float64 `json:"start_us"`
	DurationMicros float64 `json:"duration_us"`
	Task           string  `json:"task"`
	Preemptible    bool    `json:"preemptible"`
}

// Timeline is the concrete schedule over one hyperperiod: slots cover
// [0, hyperperiod) exactly, with no gap and no overlap.
type Timeline struct {
	HyperperiodMicros float64 `json:"hyperperiod_us"`
	Slots             []Slot  `json:"slots"`
}

const timeEps = 1e-9

// job is one released instance of a task within the hyperperiod.
type job struct {
	task      *Task
	release   float64
	deadline  float64 // absolute
	remaining float64
}

// GenerateTimeline simulates a preemptive single-processor clock from
// time zero to the hyperperiod. The clock advances to the nearest
// event (release, completion, deadline) rather than by a fixed
// quantum, so the schedule is exact. Ties are broken by task name,
// making the result deterministic.
func GenerateTimeline(tasks []Task, policy Policy) (*Timeline, error) {
	hyper := float64(Hyperperiod(tasks))
	if len(tasks) == 0 || hyper == 0 {
		return nil, fmt.Errorf("cannot build timeline: no periodic tasks")
	}

	if policy == PolicyRMA {
		AssignRMAPriorities(tasks)
	}

	var jobs []*job
	for i := range tasks {
		t := &tasks[i]
		count := int(hyper / t.PeriodMicros)
		for k := 0; k < count; k++ {
			release := float64(k) * t.PeriodMicros
			jobs = append(jobs, &job{
				task:      t,
				release:   release,
				deadline:  release + t.EffectiveDeadline(),
				remaining: t.WCETMicros,
			})
		}
	}

	// Boundary instants a slot may never span: releases and deadlines.
	boundarySet := map[float64]bool{}
	for _, j := range jobs {
		boundarySet[j.release] = true
		boundarySet[j.deadline] = true
	}
	var boundaries []float64
	for b := range boundarySet {
		if b > 0 && b < hyper {
			boundaries = append(boundaries, b)
		}
	}
	sort.Float64s(boundaries)

	tl := &Timeline{HyperperiodMicros: hyper}
	var running *job // pinned while a non-preemptible job executes

	now := 0.0
	for now < hyper-timeEps {
		var cur *job
		if running != nil && running.remaining > timeEps {
			cur = running
		} else {
			running = nil
			cur = pickJob(jobs, now, policy)
		}

		if cur == nil {
			next := nextRelease(jobs, now, hyper)
			tl.appendSlot(Slot{
				StartMicros:    now,
				DurationMicros: next - now,
				Task:           IdleTask,
				Preemptible:    true,
			})
			now = next
			continue
		}

		if !cur.task.Preemptible {
			running = cur
		}
		end := now + cur.remaining
		if b := nextBoundary(boundaries, now); b < end {
			end = b
		}
		if end > hyper {
			end = hyper
		}

		tl.appendSlot(Slot{
			StartMicros:    now,
			DurationMicros: end - now,
			Task:           cur.task.Name,
			Preemptible:    cur.task.Preemptible,
		})
		cur.remaining -= end - now
		now = end
	}

	for _, j := range jobs {
		if j.remaining > 1e-6 {
			return nil, fmt.Errorf("job of %s released at %.0fus did not complete within the hyperperiod", j.task.Name, j.release)
		}
	}

	return tl, nil
}

// appendSlot adds a slot, dropping zero-length intervals.
func (tl *Timeline) appendSlot(s Slot) {
	if s.DurationMicros <= timeEps {
		return
	}
	tl.Slots = append(tl.Slots, s)
}

// pickJob selects the highest-priority released incomplete job at
// time now: smallest priority number under RMA, earliest absolute
// deadline under EDF, ties by task name.
func pickJob(jobs []*job, now float64, policy Policy) *job {
	var best *job
	for _, j := range jobs {
		if j.release > now+timeEps || j.remaining <= timeEps {
			continue
		}
		if best == nil || prefer(j, best, policy) {
			best = j
		}
	}
	return best
}

func prefer(a, b *job, policy Policy) bool {
	if policy == PolicyEDF {
		if math.Abs(a.deadline-b.deadline) > timeEps {
			return a.deadline < b.deadline
		}
		return a.task.Name < b.task.Name
	}
	pa, pb := priorityOf(a.task), priorityOf(b.task)
	if pa != pb {
		return pa < pb
	}
	return a.task.Name < b.task.Name
}

func priorityOf(t *Task) int {
	if t.Priority != nil {
		return *t.Priority
	}
	return math.MaxInt32
}

// nextRelease returns the earliest release strictly after now, capped
// at the hyperperiod.
func nextRelease(jobs []*job, now, hyper float64) float64 {
	next := hyper
	for _, j := range jobs {
		if j.release > now+timeEps && j.release < next {
			next = j.release
		}
	}
	return next
}

// nextBoundary returns the earliest boundary instant strictly after
// now, or +Inf when none remain.
func nextBoundary(boundaries []float64, now float64) float64 {
	i := sort.SearchFloat64s(boundaries, now+timeEps)
	if i < len(boundaries) {
		return boundaries[i]
	}
	return math.Inf(1)
}
