package commands

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vertexclique/lale/internal/config"
	"github.com/vertexclique/lale/pkg/platform"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize lale configuration interactively",
	Long: `Guides you through setting up a lale run configuration step by step.
Creates a config file with the target platform, scheduling policy and
task generation settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		return runInit(configPath)
	},
}

func init() {
	initCmd.Flags().String("config", ".lale/config.yaml", "Config file to write")
}

func runInit(configPath string) error {
	cfg := config.DefaultConfig()

	var platformOptions []huh.Option[string]
	for _, id := range platform.IDs() {
		model, err := platform.Lookup(id)
		if err != nil {
			return err
		}
		label := fmt.Sprintf("%s (%d MHz)", model.Name, model.CPUMHz)
		platformOptions = append(platformOptions, huh.NewOption(label, id))
	}

	platformChoice := cfg.Platform
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Target platform").
				Description("Select the hardware timing model").
				Options(platformOptions...).
				Value(&platformChoice),
		),
	)
	err := form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	cfg.Platform = platformChoice

	policyChoice := cfg.Policy
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Scheduling policy").
				Description("Fixed-priority rate-monotonic or dynamic EDF").
				Options(
					huh.NewOption("Rate-Monotonic (RMA)", "rma"),
					huh.NewOption("Earliest-Deadline-First (EDF)", "edf"),
				).
				Value(&policyChoice),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	cfg.Policy = policyChoice

	var useAutoTasks bool
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Task generation").
				Description("Generate one task per analyzed function?").
				Affirmative("Yes, auto tasks").
				Negative("No, I will list tasks myself").
				Value(&useAutoTasks),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	if useAutoTasks {
		periodStr := "10000"
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Uniform task period in microseconds").
					Placeholder("10000").
					Validate(func(s string) error {
						v, err := strconv.ParseFloat(s, 64)
						if err != nil || v <= 0 {
							return fmt.Errorf("enter a positive number")
						}
						return nil
					}).
					Value(&periodStr),
			),
		)
		err = form.Run()
		if err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		cfg.AutoTasks = true
		cfg.AutoPeriodMicros, _ = strconv.ParseFloat(periodStr, 64)
	}

	outputPath := ""
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Report output file (optional, press Enter for stdout)").
				Placeholder("report.json").
				Value(&outputPath),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	cfg.Output = outputPath

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(configPath); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", configPath)
	return nil
}
