package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargeplan/config"
	"github.com/kilianp07/chargeplan/core/fleetgen"
	"github.com/kilianp07/chargeplan/core/model"
)

var (
	fleetCfgPath string
	fleetOutPath string
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate synthetic session records",
	Long:  "gen samples charging sessions from the configured arrival, departure and state-of-charge distributions.",
	RunE:  runFleetGen,
}

func init() {
	fleetGenCmd.Flags().StringVar(&fleetCfgPath, "fleet-config", "fleet.yaml", "fleet sampling configuration")
	fleetGenCmd.Flags().StringVarP(&fleetOutPath, "out", "o", "", "output file (default stdout)")
	fleetCmd.AddCommand(fleetGenCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetGen(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fleetCfg, err := fleetgen.LoadConfig(fleetCfgPath)
	if err != nil {
		return fmt.Errorf("load fleet config: %w", err)
	}
	h := model.Horizon{Slots: cfg.Horizon.Slots, SlotMinutes: cfg.Horizon.SlotMinutes}
	records, err := fleetgen.Generate(h, fleetCfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if fleetOutPath != "" {
		f, err := os.Create(fleetOutPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
