package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/devlongs/arb-recorder/internal/arbitrage"
	"github.com/devlongs/arb-recorder/internal/output"
	"github.com/devlongs/arb-recorder/internal/recorder"
	"github.com/devlongs/arb-recorder/pkg/types"
)

type recordOptions struct {
	roi     decimal.Decimal
	path    string
	input   decimal.Decimal
	arbType types.ArbitrageType
	mode    string
	minROI  decimal.Decimal
	strict  bool
}

func (a *App) newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record one arbitrage opportunity",
		Args:  cobra.NoArgs,
	}
	bindRecord(cmd, a)
	return cmd
}

// bindRecord adds the record flags to cmd and makes it run a record attempt
func bindRecord(cmd *cobra.Command, a *App) {
	o := &recordOptions{}

	fs := cmd.Flags()
	fs.Var(newDecimalValue(decimal.Zero, &o.roi), "roi", "ROI in percent, e.g. 0.45")
	fs.StringVar(&o.path, "path", "", `token path separated by "→", e.g. "USDC→SOL→USDT→USDC"`)
	fs.Var(newDecimalValue(decimal.NewFromInt(1000), &o.input), "input", "input amount (default from recorder.default_input)")
	fs.Var(newTypeValue(types.ArbitrageTypeTriangle, &o.arbType), "type", "arbitrage type: "+typeNames()+" (default from recorder.default_type)")
	fs.StringVar(&o.mode, "mode", "Complete", "router mode (default from recorder.default_mode)")
	fs.Var(newDecimalValue(arbitrage.DefaultMinROIThreshold, &o.minROI), "min-roi", "minimum ROI threshold in percent (default from recorder.min_roi_threshold)")
	fs.BoolVar(&o.strict, "strict", false, "exit non-zero when the opportunity could not be recorded")

	_ = cmd.MarkFlagRequired("roi")
	_ = cmd.MarkFlagRequired("path")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.runRecord(cmd, o)
	}
}

// applyDefaults fills every flag the user did not set from configuration
func (a *App) applyDefaults(cmd *cobra.Command, o *recordOptions) error {
	fs := cmd.Flags()
	rc := a.cfg.Recorder

	if !fs.Changed("input") {
		o.input = rc.DefaultInput
	}
	if !fs.Changed("type") {
		t, err := types.ParseArbitrageType(rc.DefaultType)
		if err != nil {
			return fmt.Errorf("recorder.default_type: %w", err)
		}
		o.arbType = t
	}
	if !fs.Changed("mode") {
		o.mode = rc.DefaultMode
	}
	if !fs.Changed("min-roi") {
		o.minROI = rc.MinROIThreshold
	}
	return nil
}

func (a *App) runRecord(cmd *cobra.Command, o *recordOptions) error {
	if err := a.applyDefaults(cmd, o); err != nil {
		return err
	}

	rec, err := arbitrage.Build(arbitrage.Params{
		Type:            o.arbType,
		Path:            o.path,
		InputAmount:     o.input,
		ROIPercent:      o.roi,
		RouterMode:      o.mode,
		MinROIThreshold: o.minROI,
	})
	if err != nil {
		return err
	}
	if arbitrage.BelowThreshold(rec) {
		a.logger.LogBelowThreshold(rec)
	}

	ctx := cmd.Context()
	a.logger.LogConnecting(a.cfg.Database.Redacted())
	res := recorder.New(a.connect, a.logger, a.metrics).Record(ctx, rec)
	a.pushMetrics(ctx)
	a.logger.LogStats()

	out := cmd.OutOrStdout()
	if !res.OK() {
		output.PrintFailure(out, res.Err)
		if o.strict {
			return fmt.Errorf("%w: %w", ErrRecordFailed, res.Err)
		}
		return nil
	}

	output.PrintRecorded(out, res.ID, rec)
	return nil
}
