package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vertexclique/lale/pkg/report"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("%s version %s\n", report.Tool, report.Version)
		return nil
	},
}
