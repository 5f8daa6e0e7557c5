package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vertexclique/lale/pkg/platform"
)

// platformsCmd represents the platforms command
var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List the supported hardware timing models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlatforms()
	},
}

func runPlatforms() error {
	for _, id := range platform.IDs() {
		model, err := platform.Lookup(id)
		if err != nil {
			return err
		}
		fmt.Printf("%-12s %-20s %d MHz\n", model.ID, model.Name, model.CPUMHz)
	}
	return nil
}
