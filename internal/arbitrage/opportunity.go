package arbitrage

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/devlongs/arb-recorder/pkg/types"
)

var (
	ErrInvalidType   = errors.New("invalid arbitrage type")
	ErrInvalidAmount = errors.New("invalid amount")
)

var (
	hundred = decimal.NewFromInt(100)

	// FeeRate is the share of gross profit assumed lost to fees
	FeeRate = decimal.RequireFromString("0.1")

	// DefaultMinROIThreshold is used when no threshold is configured
	DefaultMinROIThreshold = decimal.RequireFromString("0.3")
)

// Params are the inputs an opportunity is derived from
type Params struct {
	Type            types.ArbitrageType
	Path            string
	InputAmount     decimal.Decimal
	ROIPercent      decimal.Decimal
	RouterMode      string
	MinROIThreshold decimal.Decimal
}

// Build derives a record from params:
//
//	output = input * (1 + roi/100)
//	gross  = output - input
//	fees   = gross * FeeRate
//	net    = gross - fees
func Build(p Params) (*types.OpportunityRecord, error) {
	if _, err := types.ParseArbitrageType(string(p.Type)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidType, err)
	}
	if !p.InputAmount.IsPositive() {
		return nil, fmt.Errorf("%w: input amount must be positive, got %s", ErrInvalidAmount, p.InputAmount)
	}
	if p.MinROIThreshold.IsNegative() {
		return nil, fmt.Errorf("%w: min ROI threshold must not be negative, got %s", ErrInvalidAmount, p.MinROIThreshold)
	}

	path, err := ParsePath(p.Path)
	if err != nil {
		return nil, err
	}

	output := p.InputAmount.Mul(decimal.NewFromInt(1).Add(p.ROIPercent.Div(hundred)))
	gross := output.Sub(p.InputAmount)
	fees := gross.Mul(FeeRate)
	net := gross.Sub(fees)

	if !path.RoundTrip() {
		log.Debug().
			Str("start", path.Start()).
			Str("end", path.End()).
			Msg("Path does not return to its start token")
	}

	return &types.OpportunityRecord{
		ArbitrageType:   p.Type,
		StartToken:      path.Start(),
		EndToken:        path.End(),
		InputAmount:     p.InputAmount,
		OutputAmount:    output,
		GrossProfit:     gross,
		EstimatedFees:   fees,
		NetProfit:       net,
		ROIPercent:      p.ROIPercent,
		HopCount:        path.Hops(),
		PathSummary:     path.Raw,
		RouterMode:      p.RouterMode,
		MinROIThreshold: p.MinROIThreshold,
	}, nil
}

// BelowThreshold reports whether the recorded ROI misses its own threshold
func BelowThreshold(rec *types.OpportunityRecord) bool {
	return rec.ROIPercent.LessThan(rec.MinROIThreshold)
}
