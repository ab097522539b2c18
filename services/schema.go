// Package services implements the plan-to-chart pipeline: schema registry,
// document fetchers, planning oracle adapter, plan normalization, and
// filter/calculation execution.
package services

import "github.com/finsightlabs/finsight-go/models"

// DatasetSchema describes one logical dataset to the planning oracle.
type DatasetSchema struct {
	Fields []string `json:"fields"`
	Note   string   `json:"note"`
}

// Schema is the full dataset registry serialized into the oracle prompt.
type Schema struct {
	Datasets map[models.Dataset]DatasetSchema `json:"datasets"`
}

// BuildSchema returns the static registry of the six logical datasets. The
// KPI document is described as four flat tables, the shape the fetchers
// actually produce.
func BuildSchema() *Schema {
	return &Schema{
		Datasets: map[models.Dataset]DatasetSchema{
			models.DatasetKPITotals: {
				Fields: []string{"metric (totalRevenue|totalExpenses|totalProfit)", "value (number)"},
				Note:   "Overall KPI totals (one row per metric). Recommended charts: bar or pie, x=metric, y=value.",
			},
			models.DatasetKPIExpenses: {
				Fields: []string{"category (salaries|supplies|services|...)", "value (number)"},
				Note:   "Expense split by category. Charts: pie/bar, x=category, y=value.",
			},
			models.DatasetKPIMonthly: {
				Fields: []string{"month (string)", "revenue (number)", "expenses (number)", "operationalExpenses (number)", "nonOperationalExpenses (number)"},
				Note:   "Monthly KPI time-series (12 rows). Charts: line or bar, x=month, y=revenue/expenses.",
			},
			models.DatasetKPIDaily: {
				Fields: []string{"date (YYYY-MM-DD)", "revenue (number)", "expenses (number)"},
				Note:   "Daily KPI time-series (365 rows). Charts: line, x=date, y=revenue/expenses.",
			},
			models.DatasetProducts: {
				Fields: []string{"price (number)", "expense (number)", "margin (derived)", "transactions (array)", "createdAt (timestamp)"},
				Note:   "Product pricing. Charts: scatter price vs expense, histogram price, etc.",
			},
			models.DatasetTransactions: {
				Fields: []string{"buyer (string)", "amount (number)", "productIds (array)", "productCount (derived)", "createdAt (timestamp)"},
				Note:   "Transactions log. Charts: histogram/box of amount, group by buyer, time-series by createdAt.",
			},
		},
	}
}
