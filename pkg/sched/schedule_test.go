package sched

import (
	"math"
	"reflect"
	"testing"
)

// checkCoverage asserts the timeline invariants: slots tile
// [0, hyperperiod) with no gap or overlap, and every task receives
// (hyperperiod / period) executions of its full cost.
func checkCoverage(t *testing.T, tl *Timeline, tasks []Task) {
	t.Helper()

	cursor := 0.0
	perTask := map[string]float64{}
	for _, s := range tl.Slots {
		if math.Abs(s.StartMicros-cursor) > 1e-6 {
			t.Fatalf("slot at %v does not start where the previous ended (%v)", s.StartMicros, cursor)
		}
		if s.DurationMicros <= 0 {
			t.Fatalf("slot at %v has non-positive duration %v", s.StartMicros, s.DurationMicros)
		}
		cursor = s.StartMicros + s.DurationMicros
		perTask[s.Task] += s.DurationMicros
	}
	if math.Abs(cursor-tl.HyperperiodMicros) > 1e-6 {
		t.Fatalf("slots end at %v, want hyperperiod %v", cursor, tl.HyperperiodMicros)
	}

	for _, task := range tasks {
		jobs := tl.HyperperiodMicros / task.PeriodMicros
		want := jobs * task.WCETMicros
		if math.Abs(perTask[task.Name]-want) > 1e-6 {
			t.Errorf("task %s received %v us, want %v", task.Name, perTask[task.Name], want)
		}
	}
}

func specTasks() []Task {
	return []Task{
		{Name: "T1", WCETMicros: 2000, PeriodMicros: 10000, Preemptible: true},
		{Name: "T2", WCETMicros: 3000, PeriodMicros: 15000, Preemptible: true},
	}
}

func TestGenerateTimelineRMA(t *testing.T) {
	tasks := specTasks()
	tl, err := GenerateTimeline(tasks, PolicyRMA)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}

	if tl.HyperperiodMicros != 30000 {
		t.Fatalf("hyperperiod = %v, want 30000", tl.HyperperiodMicros)
	}
	checkCoverage(t, tl, tasks)

	// Priority order puts T1 first at time zero.
	if tl.Slots[0].Task != "T1" || tl.Slots[0].DurationMicros != 2000 {
		t.Errorf("first slot = %+v, want T1 for 2000us", tl.Slots[0])
	}
	if tl.Slots[1].Task != "T2" || tl.Slots[1].DurationMicros != 3000 {
		t.Errorf("second slot = %+v, want T2 for 3000us", tl.Slots[1])
	}
	if tl.Slots[2].Task != IdleTask {
		t.Errorf("third slot = %+v, want idle", tl.Slots[2])
	}
}

func TestGenerateTimelineEDF(t *testing.T) {
	tasks := specTasks()
	tl, err := GenerateTimeline(tasks, PolicyEDF)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	checkCoverage(t, tl, tasks)

	// At time zero T1's absolute deadline (10000) beats T2's (15000).
	if tl.Slots[0].Task != "T1" {
		t.Errorf("first slot = %+v, want T1", tl.Slots[0])
	}
}

func TestTimelineDeterminism(t *testing.T) {
	a, err := GenerateTimeline(specTasks(), PolicyRMA)
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateTimeline(specTasks(), PolicyRMA)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two runs over the same task set produced different timelines")
	}
}

func TestTimelinePreemption(t *testing.T) {
	// The long task is preempted whenever the short one releases.
	tasks := []Task{
		{Name: "short", WCETMicros: 1000, PeriodMicros: 4000, Preemptible: true},
		{Name: "long", WCETMicros: 5000, PeriodMicros: 16000, Preemptible: true},
	}
	tl, err := GenerateTimeline(tasks, PolicyRMA)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	checkCoverage(t, tl, tasks)

	longSlots := 0
	for _, s := range tl.Slots {
		if s.Task == "long" {
			longSlots++
		}
	}
	if longSlots < 2 {
		t.Errorf("long task ran in %d slots, expected it to be preempted into several", longSlots)
	}

	// No slot may span a release instant.
	for _, s := range tl.Slots {
		start, end := s.StartMicros, s.StartMicros+s.DurationMicros
		for release := 4000.0; release < tl.HyperperiodMicros; release += 4000 {
			if start < release && release < end-1e-9 {
				t.Errorf("slot %+v spans the release at %v", s, release)
			}
		}
	}
}

func TestTimelineNonPreemptibleBlocksHigherPriority(t *testing.T) {
	tasks := []Task{
		{Name: "hi", WCETMicros: 1000, PeriodMicros: 5000, Preemptible: true},
		{Name: "lo", WCETMicros: 6000, PeriodMicros: 10000, Preemptible: false},
	}
	tl, err := GenerateTimeline(tasks, PolicyRMA)
	if err != nil {
		t.Fatalf("GenerateTimeline failed: %v", err)
	}
	checkCoverage(t, tl, tasks)

	// lo starts at 1000 and holds the processor through hi's release
	// at 5000; hi only runs again at 7000.
	var hiStarts []float64
	for _, s := range tl.Slots {
		if s.Task == "hi" {
			hiStarts = append(hiStarts, s.StartMicros)
		}
	}
	if len(hiStarts) != 2 {
		t.Fatalf("hi ran %d times, want 2", len(hiStarts))
	}
	if hiStarts[0] != 0 || hiStarts[1] != 7000 {
		t.Errorf("hi started at %v, want [0 7000]", hiStarts)
	}
}

func TestTimelineRejectsOverload(t *testing.T) {
	tasks := []Task{
		{Name: "T1", WCETMicros: 9000, PeriodMicros: 10000, Preemptible: true},
		{Name: "T2", WCETMicros: 5000, PeriodMicros: 10000, Preemptible: true},
	}
	if _, err := GenerateTimeline(tasks, PolicyRMA); err == nil {
		t.Fatal("expected an error for an overloaded task set")
	}
}

func TestTimelineNoTasks(t *testing.T) {
	if _, err := GenerateTimeline(nil, PolicyRMA); err == nil {
		t.Fatal("expected an error for an empty task set")
	}
}
