package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetplan/app"
	"github.com/kilianp07/fleetplan/core/flighttime"
	"github.com/kilianp07/fleetplan/core/geo"
)

var estimateSpeed float64

var estimateCmd = &cobra.Command{
	Use:   "estimate FROM TO",
	Short: "Estimate the block time between two airports",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		loc, err := app.LoadLocator(cfg.Airports)
		if err != nil {
			return err
		}
		return printEstimate(cmd.OutOrStdout(), loc, args[0], args[1], estimateSpeed)
	},
}

func init() {
	estimateCmd.Flags().Float64Var(&estimateSpeed, "speed", 404, "cruise speed in knots")
	rootCmd.AddCommand(estimateCmd)
}

func printEstimate(w io.Writer, loc geo.Locator, from, to string, speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("speed must be positive, got %v", speed)
	}
	d, err := loc.DistanceNM(from, to)
	if err != nil {
		return err
	}
	est := flighttime.Compute(d, speed)
	fmt.Fprintf(w, "%s -> %s: %.1f nm, %s\n", geo.Label(loc, from), geo.Label(loc, to), d, est.Text())
	return nil
}
