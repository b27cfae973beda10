package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargeplan/app"
	"github.com/kilianp07/chargeplan/config"
	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/normalize"
	"github.com/kilianp07/chargeplan/core/planner"
	"github.com/kilianp07/chargeplan/core/pricing"
	"github.com/kilianp07/chargeplan/infra/logger"
	"github.com/kilianp07/chargeplan/pkg/export"
)

var (
	snapshotPath string
	damPath      string
	idmPath      string
	outPath      string
	outFormat    string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute one schedule from a snapshot file",
	Long: "plan runs a single planning cycle: it reads a fleet snapshot from a JSON file, " +
		"optionally merges day-ahead and intraday price feeds, and writes the schedule.",
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "fleet snapshot JSON file (required)")
	planCmd.Flags().StringVar(&damPath, "dam", "", "hourly day-ahead price feed (JSON array)")
	planCmd.Flags().StringVar(&idmPath, "idm", "", "per-interval intraday price feed (JSON array)")
	planCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	planCmd.Flags().StringVarP(&outFormat, "format", "f", "json", "output format: json or csv")
	_ = planCmd.MarkFlagRequired("snapshot")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	snap, err := loadSnapshot(snapshotPath)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap.Horizon.Slots == 0 {
		snap.Horizon = model.Horizon{Slots: cfg.Horizon.Slots, SlotMinutes: cfg.Horizon.SlotMinutes}
	}

	var curve pricing.MarketCurve
	priced := false
	if damPath != "" {
		dam, err := loadFeed(damPath)
		if err != nil {
			return fmt.Errorf("load day-ahead feed: %w", err)
		}
		var idm []float64
		if idmPath != "" {
			if idm, err = loadFeed(idmPath); err != nil {
				return fmt.Errorf("load intraday feed: %w", err)
			}
		}
		curve, err = pricing.Assemble(snap.Horizon, dam, idm)
		if err != nil {
			return fmt.Errorf("assemble prices: %w", err)
		}
		snap.Prices = make([]normalize.PricePoint, snap.Horizon.Slots)
		for t := range snap.Prices {
			snap.Prices[t] = normalize.PricePoint{IntervalIndex: t, PricePerKWh: curve.Prices.At(t)}
		}
		priced = true
	}

	alloc, err := app.NewAllocator(cfg.Solver)
	if err != nil {
		return err
	}
	pl := planner.New(alloc, logger.New("planner"))
	pl.WithBaseline = cfg.Solver.WithBaseline

	res, err := pl.Plan(context.Background(), snap)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	switch outFormat {
	case "json":
		err = export.WriteJSON(out, res.Schedule)
	case "csv":
		err = export.WriteCSV(out, res.Schedule)
	default:
		return fmt.Errorf("unknown format %s", outFormat)
	}
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "plan %s: %s, cost %.4f, %d shortfall sessions, %d invalid records\n",
		res.PlanID, res.Status, res.Summary.TotalCost, res.Summary.ShortfallSessions, res.Summary.InvalidRecords)
	if res.Summary.BaselineCost > 0 {
		fmt.Fprintf(errOut, "baseline cost %.4f, savings %.1f%%\n", res.Summary.BaselineCost, res.Summary.SavingsPct)
	}
	if priced && res.Schedule != nil {
		for market, share := range curve.Attribution(res.Schedule.AggregateKW, snap.Horizon) {
			fmt.Fprintf(errOut, "%s: %.2f kWh for %.4f\n", market, share.EnergyKWh, share.Cost)
		}
	}
	return nil
}

func loadSnapshot(path string) (planner.Snapshot, error) {
	var snap planner.Snapshot
	b, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	err = json.Unmarshal(b, &snap)
	return snap, err
}

func loadFeed(path string) ([]float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var feed []float64
	err = json.Unmarshal(b, &feed)
	return feed, err
}
