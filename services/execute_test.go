package services

import (
	"testing"

	"github.com/finsightlabs/finsight-go/models"
)

func totalsFrame() *models.Frame {
	f := models.NewFrame("metric", "value")
	f.Rows = []map[string]interface{}{
		{"metric": "totalRevenue", "value": 100},
		{"metric": "totalExpenses", "value": 40},
		{"metric": "totalProfit", "value": 60},
	}
	return f
}

func TestApplyFilterRestrictsRows(t *testing.T) {
	plan := models.ChartPlan{Filter: map[string][]interface{}{
		"metric": {"totalRevenue", "totalExpenses"},
	}}
	got := ApplyFilter(totalsFrame(), plan)
	if got.Len() != 2 {
		t.Fatalf("rows = %d, want 2", got.Len())
	}
	for _, row := range got.Rows {
		if row["metric"] == "totalProfit" {
			t.Error("totalProfit survived the filter")
		}
	}
}

func TestApplyFilterIgnoresUnknownColumns(t *testing.T) {
	plan := models.ChartPlan{Filter: map[string][]interface{}{
		"region": {"emea"},
	}}
	got := ApplyFilter(totalsFrame(), plan)
	if got.Len() != 3 {
		t.Errorf("rows = %d, want all 3 (unknown column ignored)", got.Len())
	}
}

func TestApplyFilterNoOps(t *testing.T) {
	frame := totalsFrame()
	if got := ApplyFilter(frame, models.ChartPlan{}); got.Len() != 3 {
		t.Errorf("nil filter: rows = %d, want 3", got.Len())
	}
	empty := models.NewFrame("metric", "value")
	plan := models.ChartPlan{Filter: map[string][]interface{}{"metric": {"totalRevenue"}}}
	if got := ApplyFilter(empty, plan); got.Len() != 0 {
		t.Errorf("empty frame: rows = %d, want 0", got.Len())
	}
}

func TestApplyFilterNumericCrossType(t *testing.T) {
	f := models.NewFrame("amount")
	f.Rows = []map[string]interface{}{
		{"amount": int32(100)},
		{"amount": 250.0},
	}
	plan := models.ChartPlan{Filter: map[string][]interface{}{
		// JSON-decoded filter values are float64
		"amount": {100.0},
	}}
	got := ApplyFilter(f, plan)
	if got.Len() != 1 {
		t.Errorf("rows = %d, want 1 (int32 cell matches float64 filter value)", got.Len())
	}
}

func TestApplyCalculationAddsColumn(t *testing.T) {
	frame := totalsFrame()
	got := ApplyCalculation(frame, models.ChartPlan{Calculation: "doubled = value * 2"})
	if !got.HasColumn("doubled") {
		t.Fatal("doubled column missing")
	}
	if v, _ := models.ToFloat64(got.Rows[0]["doubled"]); v != 200 {
		t.Errorf("doubled[0] = %v, want 200", got.Rows[0]["doubled"])
	}
}

func TestApplyCalculationSafety(t *testing.T) {
	cases := []struct {
		name string
		calc string
	}{
		{"no assignment", "value * 2"},
		{"unknown column", "ratio = value / missingColumn"},
		{"bare unknown column", "ratio = missingColumn"},
		{"unparsable expression", "x = value +* 2"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame := totalsFrame()
			got := ApplyCalculation(frame, models.ChartPlan{Calculation: tc.calc})
			if len(got.Columns) != 2 {
				t.Errorf("columns = %v, want unchanged [metric value]", got.Columns)
			}
			if got.Len() != 3 {
				t.Errorf("rows = %d, want unchanged 3", got.Len())
			}
		})
	}
}

func TestApplyCalculationEmptyFrame(t *testing.T) {
	empty := models.NewFrame("metric", "value")
	got := ApplyCalculation(empty, models.ChartPlan{Calculation: "doubled = value * 2"})
	if got.HasColumn("doubled") {
		t.Error("calculation ran on empty frame")
	}
}
