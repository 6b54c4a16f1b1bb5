package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetplan/app"
	"github.com/kilianp07/fleetplan/core/flighttime"
	"github.com/kilianp07/fleetplan/core/geo"
)

var (
	findPositions []string
	findDeparture string
	findSpeed     float64
)

var findplaneCmd = &cobra.Command{
	Use:   "findplane",
	Short: "Pick the aircraft position that reaches a departure first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		loc, err := app.LoadLocator(cfg.Airports)
		if err != nil {
			return err
		}
		return printClosest(cmd.OutOrStdout(), loc, findPositions, findDeparture, findSpeed)
	},
}

func init() {
	findplaneCmd.Flags().StringArrayVar(&findPositions, "aircraft", nil, "current aircraft position (repeatable)")
	findplaneCmd.Flags().StringVar(&findDeparture, "departure", "", "mission departure airport")
	findplaneCmd.Flags().Float64Var(&findSpeed, "speed", 404, "cruise speed in knots")
	_ = findplaneCmd.MarkFlagRequired("departure")
	rootCmd.AddCommand(findplaneCmd)
}

func printClosest(w io.Writer, loc geo.Locator, positions []string, departure string, speed float64) error {
	if len(positions) < 2 {
		return errors.New("at least two --aircraft positions are required")
	}
	ranked, err := flighttime.Nearest(loc, positions, departure, speed)
	if err != nil {
		return err
	}
	for _, c := range ranked {
		fmt.Fprintf(w, "aircraft %d at %s: %.1f nm, %s\n", c.Index+1, c.Position, c.DistanceNM, c.Estimate.Text())
	}
	if ranked[0].Estimate.TotalHours == ranked[1].Estimate.TotalHours {
		fmt.Fprintln(w, "either aircraft may be chosen")
		return nil
	}
	best := ranked[0]
	fmt.Fprintf(w, "choose aircraft %d (%s), it saves %d minutes\n", best.Index+1, best.Position, flighttime.SavedMinutes(ranked))
	return nil
}
