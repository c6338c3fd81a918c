package output

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlongs/arb-recorder/internal/store/postgres"
	"github.com/devlongs/arb-recorder/pkg/types"
)

func sampleRecord() *types.OpportunityRecord {
	return &types.OpportunityRecord{
		ID:              42,
		DiscoveredAt:    time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
		ArbitrageType:   types.ArbitrageTypeTriangle,
		StartToken:      "USDC",
		EndToken:        "USDC",
		InputAmount:     decimal.NewFromInt(1000),
		OutputAmount:    decimal.RequireFromString("1004.5"),
		GrossProfit:     decimal.RequireFromString("4.5"),
		EstimatedFees:   decimal.RequireFromString("0.45"),
		NetProfit:       decimal.RequireFromString("4.05"),
		ROIPercent:      decimal.RequireFromString("0.45"),
		HopCount:        3,
		PathSummary:     "USDC→SOL→USDT→USDC",
		RouterMode:      "Complete",
		MinROIThreshold: decimal.RequireFromString("0.3"),
	}
}

func TestPrintRecorded(t *testing.T) {
	var buf bytes.Buffer
	PrintRecorded(&buf, 42, sampleRecord())

	want := "✅ Opportunity #42 recorded\n" +
		"   ROI: 0.4500%\n" +
		"   Path: USDC→SOL→USDT→USDC\n"
	assert.Equal(t, want, buf.String())
}

func TestPrintFailure(t *testing.T) {
	var buf bytes.Buffer
	PrintFailure(&buf, errors.New("connection refused"))

	assert.Equal(t, "❌ Failed to record opportunity: connection refused\n", buf.String())
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", Bar(4))
	assert.Equal(t, "██", Bar(12))
	assert.Equal(t, strings.Repeat("█", 50), Bar(10000))
	assert.Equal(t, "", Bar(-3))
}

func TestRecentTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReport(&buf, false).Recent([]types.OpportunityRecord{*sampleRecord()}))

	out := buf.String()
	assert.Contains(t, out, "Discovered")
	assert.Contains(t, out, "2025-03-01 12:30:00")
	assert.Contains(t, out, "0.4500")
	assert.Contains(t, out, "4.05 USDC")
	assert.Contains(t, out, "USDC→SOL→USDT→USDC")
}

func TestRecentEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReport(&buf, false).Recent(nil))
	assert.Equal(t, "No opportunities recorded yet\n", buf.String())

	buf.Reset()
	require.NoError(t, NewReport(&buf, true).Recent(nil))
	assert.JSONEq(t, "[]", buf.String())
}

func TestSummaryJSON(t *testing.T) {
	sum := &postgres.Summary{
		Count:  3,
		AvgROI: sql.NullFloat64{Float64: 0.75, Valid: true},
		ByType: []postgres.GroupStat{
			{Key: "Triangle", Count: 3, AvgROI: sql.NullFloat64{Float64: 0.75, Valid: true}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewReport(&buf, true).Summary(sum))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, float64(3), got["count"])
	assert.Equal(t, 0.75, got["avgRoi"])
	assert.Nil(t, got["minRoi"])
	assert.Len(t, got["byType"], 1)
	assert.Equal(t, []any{}, got["byMode"])
}

func TestSummaryTable(t *testing.T) {
	sum := &postgres.Summary{
		Count:    2,
		AvgROI:   sql.NullFloat64{Float64: 0.5, Valid: true},
		MinROI:   sql.NullFloat64{Float64: 0.4, Valid: true},
		MaxROI:   sql.NullFloat64{Float64: 0.6, Valid: true},
		Executed: 1,
		ByMode: []postgres.GroupStat{
			{Key: "Complete", Count: 2, AvgROI: sql.NullFloat64{Float64: 0.5, Valid: true}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewReport(&buf, false).Summary(sum))

	out := buf.String()
	assert.Contains(t, out, "0.4000 - 0.6000")
	assert.Contains(t, out, "Router mode")
	assert.Contains(t, out, "Complete")
	assert.NotContains(t, out, "Type ")
}

func TestROIDistributionTable(t *testing.T) {
	var buf bytes.Buffer
	err := NewReport(&buf, false).ROIDistribution([]postgres.ROIBucket{
		{Range: "< 0.5%", Count: 12},
		{Range: "0.5-1.0%", Count: 3},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "< 0.5%")
	assert.Contains(t, out, "██")
	assert.NotContains(t, out, "███")
}

func TestHourlyJSON(t *testing.T) {
	var buf bytes.Buffer
	err := NewReport(&buf, true).Hourly([]postgres.HourlyStat{
		{
			Hour:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			Count:  4,
			AvgROI: sql.NullFloat64{Float64: 0.5, Valid: true},
			MaxROI: sql.NullFloat64{Float64: 1.2, Valid: true},
		},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `[{"hour":"2025-03-01 12:00","count":4,"avgRoi":0.5,"maxRoi":1.2}]`, buf.String())
}

func TestOpportunityTable(t *testing.T) {
	rec := sampleRecord()
	status := "success"
	rec.IsExecuted = true
	rec.ExecutionStatus = &status
	rec.ActualProfit = decimal.NewNullDecimal(decimal.RequireFromString("3.9"))

	var buf bytes.Buffer
	require.NoError(t, NewReport(&buf, false).Opportunity(rec))

	out := buf.String()
	assert.Contains(t, out, "1004.5 USDC")
	assert.Contains(t, out, "0.45 USDC")
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "3.9 USDC")
	assert.Contains(t, out, "0.30")
}

func TestRecentJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReport(&buf, true).Recent([]types.OpportunityRecord{*sampleRecord()}))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)

	row := got[0]
	assert.Equal(t, float64(42), row["id"])
	assert.Equal(t, "Triangle", row["arbitrageType"])
	assert.Equal(t, "1000", row["inputAmount"])
	assert.Equal(t, "1004.5", row["outputAmount"])
	assert.Equal(t, "4.5", row["grossProfit"])
	assert.Equal(t, "0.45", row["estimatedFees"])
	assert.Equal(t, "4.05", row["netProfit"])
	assert.Equal(t, "0.45", row["roiPercent"])
	assert.Equal(t, "0.3", row["minRoiThreshold"])
	assert.Equal(t, float64(3), row["hopCount"])
	assert.Equal(t, false, row["isExecuted"])
	assert.Nil(t, row["actualProfit"])
	assert.NotContains(t, row, "executionStatus")
}

func TestOpportunityJSON(t *testing.T) {
	rec := sampleRecord()
	status := "success"
	tx := "5h3kTx"
	rec.IsExecuted = true
	rec.ExecutionStatus = &status
	rec.ExecutionTxHash = &tx
	rec.ActualProfit = decimal.NewNullDecimal(decimal.RequireFromString("3.9"))

	var buf bytes.Buffer
	require.NoError(t, NewReport(&buf, true).Opportunity(rec))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, float64(42), got["id"])
	assert.Equal(t, "2025-03-01T12:30:00Z", got["discoveredAt"])
	assert.Equal(t, "USDC→SOL→USDT→USDC", got["pathSummary"])
	assert.Equal(t, "Complete", got["routerMode"])
	assert.Equal(t, true, got["isExecuted"])
	assert.Equal(t, "success", got["executionStatus"])
	assert.Equal(t, "5h3kTx", got["executionTxHash"])
	assert.Equal(t, "3.9", got["actualProfit"])
}
