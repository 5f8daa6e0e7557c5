package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vertexclique/lale/internal/config"
	"github.com/vertexclique/lale/internal/log"
	"github.com/vertexclique/lale/internal/scanner"
	"github.com/vertexclique/lale/pkg/analyzer"
	"github.com/vertexclique/lale/pkg/cache"
	"github.com/vertexclique/lale/pkg/loops"
	"github.com/vertexclique/lale/pkg/platform"
	"github.com/vertexclique/lale/pkg/report"
	"github.com/vertexclique/lale/pkg/sched"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <dir>",
	Short: "Analyze .ll files under a directory and decide schedulability",
	Long: `Scans a directory tree for LLVM textual IR (.ll) files, computes a
worst-case execution time bound for every function, and runs the
configured schedulability analysis over the task set.

Exit codes: 0 schedulable, 1 analysis error, 2 unschedulable,
3 inconclusive.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		platformID, _ := cmd.Flags().GetString("platform")
		policy, _ := cmd.Flags().GetString("policy")
		configPath, _ := cmd.Flags().GetString("config")
		tasksPath, _ := cmd.Flags().GetString("tasks")
		autoTasks, _ := cmd.Flags().GetBool("auto-tasks")
		autoPeriod, _ := cmd.Flags().GetFloat64("auto-period-us")
		output, _ := cmd.Flags().GetString("output")
		cacheDir, _ := cmd.Flags().GetString("cache")
		verbose, _ := cmd.Flags().GetBool("verbose")
		return runAnalyze(args[0], platformID, policy, configPath, tasksPath, output, cacheDir, autoTasks, autoPeriod, verbose)
	},
}

func init() {
	analyzeCmd.Flags().String("platform", "", "Platform timing model (see 'lale platforms')")
	analyzeCmd.Flags().String("policy", "", "Scheduling policy: rma or edf")
	analyzeCmd.Flags().String("config", "", "Run configuration file")
	analyzeCmd.Flags().String("tasks", "", "Task set YAML file")
	analyzeCmd.Flags().Bool("auto-tasks", false, "Generate one task per analyzed function")
	analyzeCmd.Flags().Float64("auto-period-us", 0, "Uniform period for --auto-tasks, in microseconds")
	analyzeCmd.Flags().StringP("output", "o", "", "Write the JSON report to a file instead of stdout")
	analyzeCmd.Flags().String("cache", "", "Directory for the on-disk result cache")
	analyzeCmd.Flags().BoolP("verbose", "v", false, "Verbose logging")
}

func runAnalyze(dir, platformID, policy, configPath, tasksPath, output, cacheDir string, autoTasks bool, autoPeriod float64, verbose bool) error {
	cfg, err := loadRunConfig(configPath)
	if err != nil {
		return &ExitError{Code: 1, Msg: err.Error()}
	}

	// Flags override the configuration file.
	if platformID != "" {
		cfg.Platform = platformID
	}
	if policy != "" {
		cfg.Policy = policy
	}
	if output != "" {
		cfg.Output = output
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	if autoTasks {
		cfg.AutoTasks = true
		cfg.AutoPeriodMicros = autoPeriod
	}
	if verbose {
		cfg.Verbose = true
	}

	logger := log.Default()
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if tasksPath != "" {
		tasks, bounds, err := config.LoadTasksFile(tasksPath)
		if err != nil {
			return &ExitError{Code: 1, Msg: err.Error()}
		}
		cfg.Tasks = tasks
		cfg.LoopBounds = append(cfg.LoopBounds, bounds...)
		cfg.AutoTasks = false
	}
	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: 1, Msg: err.Error()}
	}

	model, err := platform.Lookup(cfg.Platform)
	if err != nil {
		return &ExitError{Code: 1, Msg: err.Error()}
	}
	pol, err := sched.ParsePolicy(cfg.Policy)
	if err != nil {
		return &ExitError{Code: 1, Msg: err.Error()}
	}

	files, err := scanner.New(scanner.DefaultOptions()).Scan(dir)
	if err != nil {
		return &ExitError{Code: 1, Msg: err.Error()}
	}
	if len(files) == 0 {
		return &ExitError{Code: 1, Msg: fmt.Sprintf("no .ll files found under %s", dir)}
	}
	logger.Info("scanned input directory", "dir", dir, "files", len(files))

	opts := analyzer.RunOptions{
		Options: analyzer.Options{
			Platform:         model,
			DefaultLoopBound: cfg.DefaultLoopBound,
			LoopBounds:       boundMap(cfg.LoopBounds),
			SolverTimeout:    time.Duration(cfg.SolverTimeoutSecs) * time.Second,
			Workers:          cfg.Workers,
		},
		Policy:           pol,
		TaskSpecs:        taskSpecs(cfg.Tasks),
		AutoTasks:        cfg.AutoTasks,
		AutoPeriodMicros: cfg.AutoPeriodMicros,
	}

	var cachePath string
	if cfg.CacheDir != "" {
		opts.Cache = cache.New()
		cachePath = filepath.Join(cfg.CacheDir, "lale-cache.msgpack")
		if err := opts.Cache.LoadFile(cachePath); err != nil {
			logger.Warn("could not load result cache", "path", cachePath, "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.FullPath
	}

	rep, skipped, err := analyzer.Run(ctx, paths, opts)
	if err != nil {
		return &ExitError{Code: 1, Msg: err.Error()}
	}
	for _, s := range skipped {
		logger.Warn("skipped file", "path", s.Path, "error", s.Err)
	}

	if opts.Cache != nil {
		if err := opts.Cache.SaveFile(cachePath); err != nil {
			logger.Warn("could not save result cache", "path", cachePath, "error", err)
		}
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return &ExitError{Code: 1, Msg: fmt.Sprintf("encoding report: %v", err)}
	}
	if cfg.Output != "" {
		if err := os.WriteFile(cfg.Output, append(data, '\n'), 0644); err != nil {
			return &ExitError{Code: 1, Msg: fmt.Sprintf("writing report: %v", err)}
		}
		logger.Info("report written", "path", cfg.Output)
	} else {
		fmt.Println(string(data))
	}

	return verdictExit(rep)
}

// loadRunConfig loads the layered configuration, or a specific file
// when one is given.
func loadRunConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// verdictExit maps the report's verdict onto the documented exit
// codes.
func verdictExit(rep *report.Report) error {
	if rep.Schedulability == nil {
		return nil
	}
	switch rep.Schedulability.Verdict {
	case sched.Unschedulable:
		return &ExitError{Code: 2, Msg: "task set is unschedulable"}
	case sched.Inconclusive:
		return &ExitError{Code: 3, Msg: "schedulability analysis was inconclusive"}
	default:
		return nil
	}
}

func boundMap(bounds []config.LoopBound) map[loops.BoundKey]uint64 {
	if len(bounds) == 0 {
		return nil
	}
	m := make(map[loops.BoundKey]uint64, len(bounds))
	for _, b := range bounds {
		m[loops.BoundKey{Function: b.Function, Header: b.Header}] = b.Bound
	}
	return m
}

func taskSpecs(specs []config.TaskSpec) []analyzer.TaskSpec {
	out := make([]analyzer.TaskSpec, 0, len(specs))
	for _, s := range specs {
		preemptible := true
		if s.Preemptible != nil {
			preemptible = *s.Preemptible
		}
		out = append(out, analyzer.TaskSpec{
			Name:           s.Name,
			Function:       s.Function,
			PeriodMicros:   s.PeriodMicros,
			DeadlineMicros: s.DeadlineMicros,
			Priority:       s.Priority,
			Preemptible:    preemptible,
		})
	}
	return out
}
