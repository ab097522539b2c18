package services

import (
	"strings"

	"github.com/finsightlabs/finsight-go/models"
)

// chartSynonyms canonicalizes the chart_type values the oracle tends to
// emit. Anything not listed falls back to bar.
var chartSynonyms = map[string]models.ChartType{
	"bar":          models.ChartBar,
	"bar chart":    models.ChartBar,
	"line":         models.ChartLine,
	"line chart":   models.ChartLine,
	"scatter":      models.ChartScatter,
	"scatter plot": models.ChartScatter,
	"pie":          models.ChartPie,
	"pie chart":    models.ChartPie,
	"histogram":    models.ChartHistogram,
	"box":          models.ChartBox,
	"box plot":     models.ChartBox,
}

// NormalizePlan repairs an untrusted candidate plan into a ChartPlan that
// satisfies every invariant: valid dataset, valid chart type, non-empty x,
// and per-dataset axis defaults. Filter and calculation pass through as
// given. Normalizing an already-final plan is a no-op except for the
// kpi_totals metric inference, which only fires when no filter is present.
func NormalizePlan(candidate map[string]interface{}) models.ChartPlan {
	var plan models.ChartPlan

	dataset := models.Dataset(strings.TrimSpace(asString(candidate["dataset"])))
	if !dataset.Valid() {
		// Aliases like "kpi"/"kpis"/"totals" land here too.
		dataset = models.DatasetKPITotals
	}
	plan.Dataset = dataset

	chart := strings.ToLower(strings.TrimSpace(asString(candidate["chart_type"])))
	if canonical, ok := chartSynonyms[chart]; ok {
		plan.ChartType = canonical
	} else {
		plan.ChartType = models.ChartBar
	}

	plan.X = asString(candidate["x"])
	plan.Y = asString(candidate["y"])
	applyAxisDefaults(&plan)

	plan.Filter = asFilter(candidate["filter"])
	plan.Calculation = asString(candidate["calculation"])
	plan.Reason = asString(candidate["reason"])

	inferMetricFilter(&plan)
	return plan
}

// applyAxisDefaults fills in missing x/y per dataset. Products and
// transactions defaults depend on the chart type.
func applyAxisDefaults(plan *models.ChartPlan) {
	switch plan.Dataset {
	case models.DatasetKPITotals:
		defaultAxes(plan, "metric", "value")
	case models.DatasetKPIExpenses:
		defaultAxes(plan, "category", "value")
	case models.DatasetKPIMonthly:
		defaultAxes(plan, "month", "revenue")
	case models.DatasetKPIDaily:
		defaultAxes(plan, "date", "revenue")
	case models.DatasetProducts:
		if plan.ChartType == models.ChartScatter || plan.ChartType == models.ChartLine {
			defaultAxes(plan, "price", "expense")
		} else {
			defaultAxes(plan, "createdAt", "price")
		}
	case models.DatasetTransactions:
		if plan.ChartType == models.ChartBox || plan.ChartType == models.ChartHistogram {
			// single-series chart: no y
			if plan.X == "" {
				plan.X = "amount"
			}
		} else {
			defaultAxes(plan, "buyer", "amount")
		}
	}
}

func defaultAxes(plan *models.ChartPlan, x, y string) {
	if plan.X == "" {
		plan.X = x
	}
	if plan.Y == "" {
		plan.Y = y
	}
}

// inferMetricFilter restricts the kpi_totals table when the oracle's
// rationale names specific metrics ("compare revenue and expenses" should
// not plot profit). It never overrides an explicit filter, so it runs only
// when the candidate carried none.
func inferMetricFilter(plan *models.ChartPlan) {
	if plan.Dataset != models.DatasetKPITotals || plan.Filter != nil {
		return
	}
	reason := strings.ToLower(plan.Reason)

	var metrics []interface{}
	if strings.Contains(reason, "revenue") {
		metrics = append(metrics, "totalRevenue")
	}
	if strings.Contains(reason, "expense") {
		metrics = append(metrics, "totalExpenses")
	}
	if strings.Contains(reason, "profit") {
		metrics = append(metrics, "totalProfit")
	}
	if len(metrics) > 0 {
		plan.Filter = map[string][]interface{}{"metric": metrics}
	}
}

// asString renders scalar candidate values as strings; nil and non-scalar
// values come back empty.
func asString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return ""
	}
}

// asFilter shapes the candidate filter. A missing, non-mapping, or empty
// filter counts as absent (nil). Entries whose values are not lists are
// dropped; they could never match anything at apply time, but a non-empty
// mapping still counts as an explicit filter and blocks inference.
func asFilter(v interface{}) map[string][]interface{} {
	raw, ok := v.(map[string]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string][]interface{}, len(raw))
	for field, values := range raw {
		if list, ok := values.([]interface{}); ok {
			out[field] = list
		}
	}
	return out
}
