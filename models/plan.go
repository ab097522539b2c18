// Package models defines the chart plan, tabular frame, and API payload types.
package models

// Dataset names one of the six logical tables exposed to the planner.
type Dataset string

const (
	DatasetKPITotals    Dataset = "kpi_totals"
	DatasetKPIExpenses  Dataset = "kpi_expensesByCategory"
	DatasetKPIMonthly   Dataset = "kpi_monthly"
	DatasetKPIDaily     Dataset = "kpi_daily"
	DatasetProducts     Dataset = "products"
	DatasetTransactions Dataset = "transactions"
)

// AllDatasets lists every valid dataset, in schema order.
var AllDatasets = []Dataset{
	DatasetKPITotals,
	DatasetKPIExpenses,
	DatasetKPIMonthly,
	DatasetKPIDaily,
	DatasetProducts,
	DatasetTransactions,
}

// Valid reports whether d is one of the six known datasets.
// The comparison is case-sensitive.
func (d Dataset) Valid() bool {
	for _, known := range AllDatasets {
		if d == known {
			return true
		}
	}
	return false
}

// ChartType names one of the six supported chart kinds.
type ChartType string

const (
	ChartBar       ChartType = "bar"
	ChartLine      ChartType = "line"
	ChartScatter   ChartType = "scatter"
	ChartPie       ChartType = "pie"
	ChartHistogram ChartType = "histogram"
	ChartBox       ChartType = "box"
)

// ChartPlan is the finalized specification of what to chart. A plan coming
// out of the normalizer always carries a valid Dataset, a valid ChartType,
// and a non-empty X. Y may be empty for chart kinds that take a single
// series (box/histogram of transactions). A nil Filter means no filtering;
// an empty Calculation means no derived column.
type ChartPlan struct {
	Dataset     Dataset                  `json:"dataset"`
	ChartType   ChartType                `json:"chart_type"`
	X           string                   `json:"x"`
	Y           string                   `json:"y,omitempty"`
	Filter      map[string][]interface{} `json:"filter,omitempty"`
	Calculation string                   `json:"calculation,omitempty"`
	Reason      string                   `json:"reason,omitempty"`
}

// DashboardRequest is the inbound payload for POST /dashboard/generate.
type DashboardRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// DashboardResponse carries the rendered chart and a short description of
// what was plotted.
type DashboardResponse struct {
	Graph         string `json:"graph"`
	AssistantText string `json:"assistantText"`
}

// Product is one entry of the POST /suggest-price request body.
type Product struct {
	Price       float64 `json:"price"`
	Expense     float64 `json:"expense"`
	SalesVolume int     `json:"sales_volume"`
}

// Suggestion is the per-product result of the price suggestion endpoint,
// returned in input order.
type Suggestion struct {
	SuggestedPrice  float64 `json:"suggested_price"`
	PredictedSales  int     `json:"predicted_sales"`
	ExpectedRevenue float64 `json:"expected_revenue"`
}
