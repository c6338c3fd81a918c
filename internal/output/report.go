package output

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/devlongs/arb-recorder/internal/store/postgres"
	"github.com/devlongs/arb-recorder/pkg/types"
)

const (
	timeLayout     = "2006-01-02 15:04:05"
	timeLayoutFine = "2006-01-02 15:04:05.000"
	hourLayout     = "2006-01-02 15:00"

	barUnit   = 5  // opportunities per bar block
	barMaxLen = 50 // blocks
)

// PrintRecorded writes the confirmation for a stored opportunity
func PrintRecorded(w io.Writer, id int64, rec *types.OpportunityRecord) {
	fmt.Fprintf(w, "✅ Opportunity #%d recorded\n", id)
	fmt.Fprintf(w, "   ROI: %s%%\n", rec.ROIPercent.StringFixed(4))
	fmt.Fprintf(w, "   Path: %s\n", rec.PathSummary)
}

// PrintFailure writes the failure marker for a record attempt
func PrintFailure(w io.Writer, err error) {
	fmt.Fprintf(w, "❌ Failed to record opportunity: %v\n", err)
}

// Report renders query results as tables or JSON
type Report struct {
	w      io.Writer
	asJSON bool
}

// NewReport creates a Report writing to w
func NewReport(w io.Writer, asJSON bool) *Report {
	return &Report{w: w, asJSON: asJSON}
}

// Recent renders a list of opportunities, newest first
func (r *Report) Recent(recs []types.OpportunityRecord) error {
	if r.asJSON {
		if recs == nil {
			recs = []types.OpportunityRecord{}
		}
		return r.encode(recs)
	}

	if len(recs) == 0 {
		fmt.Fprintln(r.w, "No opportunities recorded yet")
		return nil
	}

	t := r.table("ID", "Discovered", "Type", "Mode", "ROI %", "Net profit", "Hops", "Path")
	for _, rec := range recs {
		t.Append([]string{
			strconv.FormatInt(rec.ID, 10),
			rec.DiscoveredAt.Format(timeLayout),
			rec.ArbitrageType.String(),
			rec.RouterMode,
			rec.ROIPercent.StringFixed(4),
			rec.NetProfit.String() + " " + rec.StartToken,
			strconv.Itoa(rec.HopCount),
			rec.PathSummary,
		})
	}
	t.Render()
	return nil
}

type groupView struct {
	Key    string   `json:"key"`
	Count  int64    `json:"count"`
	AvgROI *float64 `json:"avgRoi"`
}

type summaryView struct {
	Count        int64       `json:"count"`
	AvgROI       *float64    `json:"avgRoi"`
	MinROI       *float64    `json:"minRoi"`
	MaxROI       *float64    `json:"maxRoi"`
	AvgNetProfit *float64    `json:"avgNetProfit"`
	AvgHops      *float64    `json:"avgHops"`
	Executed     int64       `json:"executed"`
	ByType       []groupView `json:"byType"`
	ByMode       []groupView `json:"byMode"`
}

// Summary renders overall statistics and the per-type and per-mode breakdowns
func (r *Report) Summary(sum *postgres.Summary) error {
	if r.asJSON {
		return r.encode(summaryView{
			Count:        sum.Count,
			AvgROI:       nullable(sum.AvgROI),
			MinROI:       nullable(sum.MinROI),
			MaxROI:       nullable(sum.MaxROI),
			AvgNetProfit: nullable(sum.AvgNetProfit),
			AvgHops:      nullable(sum.AvgHops),
			Executed:     sum.Executed,
			ByType:       groupViews(sum.ByType),
			ByMode:       groupViews(sum.ByMode),
		})
	}

	t := r.table("Metric", "Value")
	t.AppendBulk([][]string{
		{"Opportunities", strconv.FormatInt(sum.Count, 10)},
		{"Average ROI %", formatNull(sum.AvgROI, 4)},
		{"ROI range %", formatNull(sum.MinROI, 4) + " - " + formatNull(sum.MaxROI, 4)},
		{"Average net profit", formatNull(sum.AvgNetProfit, 2)},
		{"Average hops", formatNull(sum.AvgHops, 2)},
		{"Executed", strconv.FormatInt(sum.Executed, 10)},
	})
	t.Render()

	r.groups("Type", sum.ByType)
	r.groups("Router mode", sum.ByMode)
	return nil
}

func (r *Report) groups(title string, groups []postgres.GroupStat) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintln(r.w)
	t := r.table(title, "Count", "Avg ROI %")
	for _, g := range groups {
		t.Append([]string{g.Key, strconv.FormatInt(g.Count, 10), formatNull(g.AvgROI, 4)})
	}
	t.Render()
}

type bucketView struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

// ROIDistribution renders the ROI histogram with one block per five opportunities
func (r *Report) ROIDistribution(buckets []postgres.ROIBucket) error {
	if r.asJSON {
		views := make([]bucketView, 0, len(buckets))
		for _, b := range buckets {
			views = append(views, bucketView{Range: b.Range, Count: b.Count})
		}
		return r.encode(views)
	}

	t := r.table("ROI range", "Count", "")
	for _, b := range buckets {
		t.Append([]string{b.Range, strconv.FormatInt(b.Count, 10), Bar(b.Count)})
	}
	t.Render()
	return nil
}

// Bar draws count as a row of blocks, capped at barMaxLen
func Bar(count int64) string {
	n := count / barUnit
	if n > barMaxLen {
		n = barMaxLen
	}
	if n < 0 {
		n = 0
	}
	return strings.Repeat("█", int(n))
}

type hourlyView struct {
	Hour   string   `json:"hour"`
	Count  int64    `json:"count"`
	AvgROI *float64 `json:"avgRoi"`
	MaxROI *float64 `json:"maxRoi"`
}

// Hourly renders per-hour statistics
func (r *Report) Hourly(stats []postgres.HourlyStat) error {
	if r.asJSON {
		views := make([]hourlyView, 0, len(stats))
		for _, s := range stats {
			views = append(views, hourlyView{
				Hour:   s.Hour.Format(hourLayout),
				Count:  s.Count,
				AvgROI: nullable(s.AvgROI),
				MaxROI: nullable(s.MaxROI),
			})
		}
		return r.encode(views)
	}

	if len(stats) == 0 {
		fmt.Fprintln(r.w, "No opportunities in the last 24 hours")
		return nil
	}

	t := r.table("Hour", "Count", "Avg ROI %", "Max ROI %")
	for _, s := range stats {
		t.Append([]string{
			s.Hour.Format(hourLayout),
			strconv.FormatInt(s.Count, 10),
			formatNull(s.AvgROI, 2),
			formatNull(s.MaxROI, 2),
		})
	}
	t.Render()
	return nil
}

// Opportunity renders every stored field of one opportunity
func (r *Report) Opportunity(rec *types.OpportunityRecord) error {
	if r.asJSON {
		return r.encode(rec)
	}

	amount := func(v fmt.Stringer, token string) string {
		return v.String() + " " + token
	}

	t := r.table("Field", "Value")
	t.AppendBulk([][]string{
		{"ID", strconv.FormatInt(rec.ID, 10)},
		{"Discovered", rec.DiscoveredAt.Format(timeLayoutFine)},
		{"Type", rec.ArbitrageType.String()},
		{"Router mode", rec.RouterMode},
		{"Min ROI %", rec.MinROIThreshold.StringFixed(2)},
		{"Input", amount(rec.InputAmount, rec.StartToken)},
		{"Output", amount(rec.OutputAmount, rec.EndToken)},
		{"Gross profit", amount(rec.GrossProfit, rec.StartToken)},
		{"Estimated fees", amount(rec.EstimatedFees, rec.StartToken)},
		{"Net profit", amount(rec.NetProfit, rec.StartToken)},
		{"ROI %", rec.ROIPercent.StringFixed(4)},
		{"Hops", strconv.Itoa(rec.HopCount)},
		{"Path", rec.PathSummary},
		{"Executed", strconv.FormatBool(rec.IsExecuted)},
		{"Status", deref(rec.ExecutionStatus)},
		{"Tx hash", deref(rec.ExecutionTxHash)},
		{"Actual profit", formatNullDecimal(rec)},
	})
	t.Render()
	return nil
}

func (r *Report) table(header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(r.w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

func (r *Report) encode(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func groupViews(groups []postgres.GroupStat) []groupView {
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, groupView{Key: g.Key, Count: g.Count, AvgROI: nullable(g.AvgROI)})
	}
	return views
}

func nullable(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func formatNull(n sql.NullFloat64, prec int) string {
	if !n.Valid {
		return "-"
	}
	return strconv.FormatFloat(n.Float64, 'f', prec, 64)
}

func formatNullDecimal(rec *types.OpportunityRecord) string {
	if !rec.ActualProfit.Valid {
		return "-"
	}
	return rec.ActualProfit.Decimal.String() + " " + rec.StartToken
}

func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
