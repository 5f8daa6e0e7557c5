// Package report materializes the structured analysis report: WCET
// results per function, the task model, the schedulability verdict
// and, when present, the hyperperiod schedule. Pure aggregation;
// serialization and persistence belong to the callers.
package report

import (
	"time"

	"github.com/vertexclique/lale/pkg/sched"
)

// Tool identifies the analyzer in report metadata.
const Tool = "lale"

// Version is the analyzer version embedded in reports.
const Version = "0.4.0"

// Info is the analysis metadata block.
type Info struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Platform  string `json:"platform"`
}

// FunctionWCET is the per-function analysis outcome. A function that
// failed analysis carries a nil WCET and an Error tag; warnings are
// non-fatal diagnostics.
type FunctionWCET struct {
	Name         string   `json:"name"`
	WCETCycles   *uint64  `json:"wcet_cycles"`
	WCETMicros   *float64 `json:"wcet_us"`
	BCETCycles   *uint64  `json:"bcet_cycles"`
	BCETMicros   *float64 `json:"bcet_us"`
	LoopCount    int      `json:"loop_count"`
	BlockCount   int      `json:"block_count,omitempty"`
	EdgeCount    int      `json:"edge_count,omitempty"`
	Error        string   `json:"error,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Inconclusive bool     `json:"inconclusive,omitempty"`
}

// WCETAnalysis groups function results in source order.
type WCETAnalysis struct {
	Functions []FunctionWCET `json:"functions"`
}

// TaskModel carries the task set in configuration order.
type TaskModel struct {
	Tasks []sched.Task `json:"tasks"`
}

// Report is the complete immutable analysis report.
type Report struct {
	AnalysisInfo   Info            `json:"analysis_info"`
	WCETAnalysis   WCETAnalysis    `json:"wcet_analysis"`
	TaskModel      TaskModel       `json:"task_model"`
	Schedulability *sched.Result   `json:"schedulability,omitempty"`
	Schedule       *sched.Timeline `json:"schedule,omitempty"`
	// Cancelled marks a partial report produced after cancellation.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Assemble builds a report from the analysis artifacts. now supplies
// the timestamp so assembly stays a pure function.
func Assemble(platformName string, now time.Time, functions []FunctionWCET, tasks []sched.Task, schedResult *sched.Result, timeline *sched.Timeline) *Report {
	return &Report{
		AnalysisInfo: Info{
			Tool:      Tool,
			Version:   Version,
			Timestamp: now.UTC().Format(time.RFC3339),
			Platform:  platformName,
		},
		WCETAnalysis:   WCETAnalysis{Functions: functions},
		TaskModel:      TaskModel{Tasks: tasks},
		Schedulability: schedResult,
		Schedule:       timeline,
	}
}
