package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ArbitrageType indicates the shape of the route an opportunity was found on
type ArbitrageType string

const (
	ArbitrageTypeDirect   ArbitrageType = "Direct"   // A -> B -> A across two pools
	ArbitrageTypeTriangle ArbitrageType = "Triangle" // A -> B -> C -> A
	ArbitrageTypeMultiHop ArbitrageType = "MultiHop" // four or more hops
)

// ArbitrageTypes lists every accepted type, in display order
var ArbitrageTypes = []ArbitrageType{
	ArbitrageTypeDirect,
	ArbitrageTypeTriangle,
	ArbitrageTypeMultiHop,
}

// ParseArbitrageType returns the type matching s exactly
func ParseArbitrageType(s string) (ArbitrageType, error) {
	for _, t := range ArbitrageTypes {
		if string(t) == s {
			return t, nil
		}
	}
	names := make([]string, len(ArbitrageTypes))
	for i, t := range ArbitrageTypes {
		names[i] = string(t)
	}
	return "", fmt.Errorf("unknown arbitrage type %q (want one of %s)", s, strings.Join(names, ", "))
}

func (t ArbitrageType) String() string {
	return string(t)
}

// OpportunityRecord is one row of arbitrage_opportunities
type OpportunityRecord struct {
	ID              int64           `db:"id" json:"id,omitempty"`
	DiscoveredAt    time.Time       `db:"discovered_at" json:"discoveredAt,omitempty"`
	ArbitrageType   ArbitrageType   `db:"arbitrage_type" json:"arbitrageType"`
	StartToken      string          `db:"start_token" json:"startToken"`
	EndToken        string          `db:"end_token" json:"endToken"`
	InputAmount     decimal.Decimal `db:"input_amount" json:"inputAmount"`
	OutputAmount    decimal.Decimal `db:"output_amount" json:"outputAmount"`
	GrossProfit     decimal.Decimal `db:"gross_profit" json:"grossProfit"`
	EstimatedFees   decimal.Decimal `db:"estimated_fees" json:"estimatedFees"`
	NetProfit       decimal.Decimal `db:"net_profit" json:"netProfit"`
	ROIPercent      decimal.Decimal `db:"roi_percent" json:"roiPercent"`
	HopCount        int             `db:"hop_count" json:"hopCount"`
	PathSummary     string          `db:"path_summary" json:"pathSummary"`
	RouterMode      string          `db:"router_mode" json:"routerMode"`
	MinROIThreshold decimal.Decimal `db:"min_roi_threshold" json:"minRoiThreshold"`

	// Execution outcome, only populated when read back
	IsExecuted      bool                `db:"is_executed" json:"isExecuted"`
	ExecutionStatus *string             `db:"execution_status" json:"executionStatus,omitempty"`
	ExecutionTxHash *string             `db:"execution_tx_hash" json:"executionTxHash,omitempty"`
	ActualProfit    decimal.NullDecimal `db:"actual_profit" json:"actualProfit"`
}

// ExecutionUpdate records what happened when an opportunity was acted on
type ExecutionUpdate struct {
	ID           int64
	Executed     bool
	Status       *string
	TxHash       *string
	ActualProfit decimal.NullDecimal
}
